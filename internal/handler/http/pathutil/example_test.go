package pathutil_test

import (
	"fmt"

	"podreplay/internal/handler/http/pathutil"
)

// ExampleNormalizePath demonstrates that the feed-bearing endpoints,
// which identify the feed via a query parameter rather than a path
// segment, normalize to a single static label.
func ExampleNormalizePath() {
	fmt.Println(pathutil.NormalizePath("/replay?feed=http://a.example.com/feed.xml"))
	fmt.Println(pathutil.NormalizePath("/replay?feed=http://b.example.com/feed.xml"))
	fmt.Println(pathutil.NormalizePath("/summary?feed=http://a.example.com/feed.xml"))

	// Output:
	// /replay
	// /replay
	// /summary
}

// ExampleNormalizePath_static demonstrates that static endpoints remain unchanged.
func ExampleNormalizePath_static() {
	fmt.Println(pathutil.NormalizePath("/health"))
	fmt.Println(pathutil.NormalizePath("/ready"))
	fmt.Println(pathutil.NormalizePath("/live"))
	fmt.Println(pathutil.NormalizePath("/metrics"))

	// Output:
	// /health
	// /ready
	// /live
	// /metrics
}

// ExampleNormalizePath_queryParameters demonstrates that query parameters are stripped.
func ExampleNormalizePath_queryParameters() {
	fmt.Println(pathutil.NormalizePath("/replay?feed=http://a.example.com/feed.xml&rule=weekly"))
	fmt.Println(pathutil.NormalizePath("/health?format=json"))

	// Output:
	// /replay
	// /health
}

// ExampleNormalizePath_trailingSlash demonstrates that trailing slashes are handled.
func ExampleNormalizePath_trailingSlash() {
	fmt.Println(pathutil.NormalizePath("/replay/"))
	fmt.Println(pathutil.NormalizePath("/summary/"))

	// Output:
	// /replay
	// /summary
}

// ExampleGetExpectedCardinality demonstrates how to check expected metric cardinality.
func ExampleGetExpectedCardinality() {
	cardinality := pathutil.GetExpectedCardinality()
	fmt.Printf("Expected unique path labels: ~%d\n", cardinality)

	// Output is approximate, so we just demonstrate the usage
	// In real output: Expected unique path labels: ~6
}
