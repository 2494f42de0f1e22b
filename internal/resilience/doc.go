// Package resilience holds the fault-tolerance patterns guarding this
// system's two external dependencies: upstream podcast feeds (retry
// with backoff plus a circuit breaker per fetcher) and Postgres (a
// breaker in front of the feed store's reads).
//
//	cb := circuitbreaker.New(circuitbreaker.FeedFetchConfig())
//	result, err := cb.Execute(func() (interface{}, error) {
//	    return fetchFeed()
//	})
//
//	err := retry.WithBackoff(ctx, retry.FeedFetchConfig(), func() error {
//	    return performFetch()
//	})
package resilience
