// Package sampler collects raw input samples from active controllers into
// bounded per-controller queues and delivers them downstream in batches.
//
// # Architecture
//
//	transport ──▶ Push(sample)
//	                 │  latency check (receive time - origin time)
//	                 │    over bound: drop + latency_violation event
//	                 ▼
//	         ┌──────────────────┐   one queue per controller,
//	         │  bounded queue   │   capacity = descriptor buffer size,
//	         │ (oldest evicted) │   overflow sheds oldest + one event
//	         └──────────────────┘   per eviction batch
//	                 │
//	    per-controller loop, period = 1/pollingRate
//	                 ▼
//	         Record{samples...} ──▶ Evaluator.ProcessInput
//
// # Timing
//
// Each controller samples at its own descriptor-derived period, so a 1 kHz
// VR controller and a 90 Hz headset coexist without coupling. Latency is
// measured between the transport's origination timestamp and the local
// monotonic receive time; violations are dropped and counted but never
// fail the producer.
//
// Push and Poll never block on the evaluator, and Poll only snapshots the
// queue: the loop is its sole consumer. Deactivation cancels the loop and
// discards the queue; a record already handed to the evaluator runs to
// completion.
package sampler
