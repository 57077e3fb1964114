// Package slidingwindow tracks how far each metering point's time series has
// been synchronized and which spans before that point still lack usable data.
//
// Terminology
//   - Synchronization point: the hour-aligned watermark up to which a metering
//     point is considered caught up, modulo recorded gaps.
//   - Missing measurements: sorted, disjoint half-open intervals at or before
//     the synchronization point that have not been confirmed with usable data.
//   - Clamp boundary: now rounded down to the hour, minus the minimum age before
//     issuing. The synchronization point never moves past it.
//
// Main components
//   - Window: the per-metering-point state. It is a value; every update returns
//     a new Window and leaves the old one untouched.
//   - Service: the stateless algorithm. FilterMeasurements decides which fetched
//     readings are new usable data. UpdateSlidingWindow computes the next window
//     from a fetch batch and a candidate synchronization point.
//     NextFetchIntervalStart tells the caller where the next fetch begins so that
//     recorded gaps are requested again.
//   - GapWatchdog: logs warnings for windows that lag the clamp boundary or carry
//     too many missing hours.
//
// # Filtering
//
// A reading is confirmed when it belongs to the window's metering point, has a
// quantity, is either at or after the synchronization point or fully inside a
// recorded gap, has quality Measured or Calculated, and has a quantity in the
// open range (0, MaxUint32). Re-delivered history outside every gap is dropped
// as a duplicate, which makes filtering idempotent and lets replicas process the
// same metering point without coordination.
//
// Usage
//  1. Load the window for a metering point, or seed one with New.
//  2. Fetch [NextFetchIntervalStart(w), ClampBoundary()) from the registry.
//  3. confirmed := FilterMeasurements(w, fetched) against the old window.
//  4. w = UpdateSlidingWindow(w, fetched, end of the fetch range).
//  5. Publish confirmed, then persist w.
package slidingwindow
