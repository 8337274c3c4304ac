// Package ragdex provides an embeddable retrieval-augmented generation index:
// documents are extracted, split into overlapping character windows, embedded
// and stored in Valkey/Redis (or in memory) so that questions can be answered
// with the most similar chunks.
//
//	client, _ := ragdex.New(ctx, ragdex.WithValkey("localhost:6379", ""))
//	defer client.Close()
//
//	raw, _ := os.ReadFile("handbook.pdf")
//	_, _ = client.IngestFile(ctx, "handbook.pdf", raw)
//	_, _ = client.ImportTexts(ctx, []string{"Opening hours are 9 to 5."})
//
//	res, _ := client.Query(ctx, "When does the office open?", 5)
//	fmt.Println(res.Context)
//	for _, s := range res.Sources {
//	    fmt.Println(s.Score, s.Metadata["source"])
//	}
//
// Without WithEmbedder the client uses a deterministic feature-hashing
// embedder that needs no network access.
package ragdex
