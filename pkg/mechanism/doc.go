// Package mechanism defines the differential-privacy engine an accountant
// delegates to, and ships a noise-based implementation.
//
// # Sessions
//
// All work happens inside a Session. A caller begins a session, loads or
// derives datasets, submits privacy-consuming requests, ends the session and
// finally commits it. Only after Commit do the returned Release values carry a
// value and the privacy usage the engine actually consumed:
//
//	sess, err := engine.Begin(ctx)
//	rel, err := sess.Submit(mechanism.Request{
//	    Op:    mechanism.OpMean,
//	    Data:  handle,
//	    Usage: mechanism.Usage{Epsilon: 0.5},
//	    Params: mechanism.Params{Lower: 0, Upper: 40, N: 4},
//	})
//	err = sess.End()
//	err = sess.Commit(ctx)
//	v, _ := rel.Value()
//	desc, _ := rel.ActualUsage() // "{epsilon: 0.5, delta: 0}"
//	usage, _ := mechanism.ParseUsage(desc)
//
// Handles returned by Load and Filter belong to the engine and stay valid
// across sessions until dropped. Handles returned by ToFloat are released
// when their session commits or aborts.
//
// # Noise engine
//
// NoiseEngine computes bounded means and counts with Laplace or Gaussian noise
// from github.com/google/differential-privacy/go/noise. Parameters are checked
// up front so that malformed bounds surface as *Error values rather than
// process exits inside the noise library.
package mechanism
