// Package passage is the embedded Go client for the passage retrieval
// engine. It wires the store, the model client, and the ranking pipeline
// in-process, so a Go program can retrieve passages without running the
// HTTP server.
//
// Minimal usage:
//
//	client, err := passage.New(ctx,
//		passage.WithRedis("localhost:6379", ""),
//		passage.WithOpenAI(os.Getenv("OPENAI_API_KEY")),
//	)
//	if err != nil { ... }
//	defer client.Close()
//
//	res, err := client.Retrieve(ctx, passage.Query{Text: "rollback procedure", Limit: 5})
package passage
