// Package server exposes one Accountant over HTTP.
//
// # Endpoints
//
//	POST /v1/mean     {cost, source, column, lower, upper, n} -> {value, used, remaining}
//	POST /v1/count    {cost, source, column}                   -> {value, used, remaining}
//	POST /v1/filter   {mask, column}                           -> {ok}
//	POST /v1/reset    {credential}                             -> {ok, message}
//	GET  /v1/budget                                            -> budget snapshot
//	GET  /v1/ledger   ?limit&offset&operation&outcome&order    -> {entries, total}
//
// Health endpoints (/health, /ready, /version) and /metrics are mounted when
// configured.
//
// # Errors
//
// Failures use the types.ErrorResponse body. Status codes:
//
//	400  malformed JSON, invalid cost or field
//	403  access to a protected field
//	409  privacy budget exhausted
//	413  body larger than max_body_bytes
//	422  the mechanism rejected the request
//	503  accountant closed
//
// A refused reset is not an error: it returns 200 with ok=false.
//
// # Usage
//
//	srv, err := server.New(&cfg.Server, server.Options{
//	    Accountant: acct,
//	    Ledger:     store,
//	    Metrics:    tel.Metrics(),
//	    Tracer:     tel.Tracer(),
//	    Health:     tel.Health(),
//	})
//	if err != nil {
//	    return err
//	}
//	return srv.Start(ctx)
package server
