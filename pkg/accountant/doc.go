// Package accountant mediates access to a dataset under a finite
// differential-privacy budget.
//
// An Accountant owns one dataset, one total budget and a running total of
// consumed budget. Every privacy-consuming statistic (Mean, Count, or any
// operation sent through Release) is charged against that budget:
//
//  1. The requested cost is clamped to the remaining budget.
//  2. The statistic is computed by a mechanism.Engine inside a session.
//  3. The session is committed.
//  4. The cost the engine reports as actually spent is added to usage.
//  5. The value is returned.
//
// Steps 1 through 4 run under one lock, so concurrent callers can never both
// spend the same remaining budget.
//
// # Protection
//
// The dataset handle, the filtered view and the usage counter are sealed with
// a guard.Key that never leaves this package. Code elsewhere can read usage
// through Used, Total, Remaining and Snapshot, but cannot read the dataset or
// change usage. Printing or marshaling an Accountant exposes only the public
// accounting figures.
//
// # Example
//
//	engine, _ := mechanism.NewNoiseEngine(mechanism.NoiseConfig{Kind: mechanism.Laplace})
//	acct, err := accountant.New(ctx, engine, []float64{10, 20, 30, 40})
//	if err != nil {
//	    return err
//	}
//	v, err := acct.InternalMean(ctx, 0.65, accountant.MeanParams{Lower: 0, Upper: 40, N: 4})
//	fmt.Println(v, acct.Used())
package accountant
