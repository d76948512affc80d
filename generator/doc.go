// Package generator produces the records stored in a ragfile container.
//
// A ContentGenerator maps a keyword to a paragraph of text and an Embedder
// maps text to vectors. OpenAI implements both against any OpenAI-compatible
// server (a local Ollama by default); Random implements both offline.
//
// Pipeline fans requests out with bounded concurrency:
//
//	gen := generator.NewOpenAI(generator.WithRateLimit(2, 1))
//	res, err := generator.NewPipeline(gen, gen).Run(ctx, generator.DefaultKeywords)
//	if err != nil {
//		return err
//	}
//	w := ragfile.NewWriter("kb.ragfile")
//	if err := res.Write(w, 8, ragfile.Precision32); err != nil {
//		return err
//	}
//	return w.Finalize()
package generator
