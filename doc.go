/*
Package tidings provides typed, in-process events with synchronous and
asynchronous delivery.

A publisher owns one Event per kind of notification it raises. Observers wrap
their callback in a Handler and subscribe it. Firing synchronously runs every
subscribed callback on the publisher's goroutine; firing asynchronously queues a
Discharge for every subscriber and leaves the delivery to a shared
dispatch.Dispatcher, which drains the queues on its own goroutine.

# Basic Usage

	d := dispatch.New()
	defer d.Stop(context.Background())

	type Thermometer struct {
		Changed tidings.Event[float64]
	}

	var t Thermometer
	t.Changed.Subscribe(tidings.HandleFunc(d, func(ctx context.Context, sender any, celsius float64) error {
		fmt.Printf("%.1f°C\n", celsius)
		return nil
	}))

	_ = t.Changed.FireSync(ctx, &t, 21.5) // printed before FireSync returns
	t.Changed.FireAsync(&t, 22.0)         // printed later, on the dispatcher goroutine

# Delivery guarantees

  - Discharges for one handler are delivered in the order they were queued
  - Nothing is ordered across handlers, across events, or between a FireAsync and
    a later FireSync
  - FireAsync never blocks on delivery; discharges queued when the dispatcher is
    stopped may or may not be delivered

# Failures

A receiver error aborts a synchronous firing and is returned to the publisher.
During asynchronous delivery errors are logged and counted, and a panicking
receiver is recovered so it cannot stop delivery for other handlers.
*/
package tidings
