// Package feed implements the polling engine that drives the candle cache.
//
// The engine:
//   - Loads an initial lookback window for every tracked symbol
//   - Polls a short window on a fixed period from a single goroutine
//   - Merges each batch into the cache and notifies the registered
//     Handler with the symbol's full history when the cache reports a change
//   - Skips symbols whose fetch fails or whose batch is malformed, and keeps
//     running
package feed
