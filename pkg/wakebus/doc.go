/*
Package wakebus carries low-latency wake hints from event producers to the
drain workers over Redis pub/sub.

A hint is the decimal partition id published on the channel of the worker
that owns the partition (notifications:wake:<worker>). Hints are advisory:
pub/sub has no durability, so a dropped hint only delays the partition until
the next periodic re-drain. Nothing reads hint payloads as data; the drain
always starts from the durable cursor.

# Channel Layout

With W workers and P partitions, partition p is owned by worker p mod W and
its hints go to notifications:wake:<p mod W>. One process subscribes all W
channels and routes each hint to the owning worker in memory.

	producer ──PUBLISH "5"──▶ notifications:wake:1 ──▶ dispatch(5) ──▶ worker 1

# Validation

Subscribers drop payloads that do not parse as a base-10 integer or that fall
outside [0, P). Dropped hints increment the wake_hints_total{outcome="ignored"}
counter; accepted ones count as dispatched.

# Usage

	pub, err := wakebus.NewPublisher(client, cfg.Workers)
	// wired into the event log as its WakePublisher

	sub, err := wakebus.NewSubscriber(client, cfg.Workers, cfg.Partitions)
	go sub.Run(ctx, notifier.Hint)

# See Also

  - pkg/eventlog: publishes a hint after each append
  - pkg/notifier: coalesces hints into drain passes
*/
package wakebus
