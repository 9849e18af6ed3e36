// Package lectern turns lecture slides and scanned handouts into a study
// library you can search, question and summarize. One Library corresponds to
// one data directory: a SQLite catalog of subjects, assets, pages, chunks
// and notes, the stored files and artifacts beside it, and a Qdrant
// collection holding the embeddings.
//
// Open wires everything from a config.Config and hands out the services:
//
//	cfg, err := config.Load("lectern.yaml")
//	lib, err := lectern.Open(cfg)
//	defer lib.Close()
//
//	subject, err := lib.CreateSubject(ctx, "Biology 101", nil)
//	asset, err := lib.AddAsset(ctx, subject.Id, "lectures/photosynthesis.pdf")
//
//	pipeline, err := lib.NewPipeline()
//	summary, err := pipeline.ProcessSubject(ctx, subject.Id, ingest.BatchOptions{})
//
//	answerer, err := lib.NewAnswerer()
//	ans, err := answerer.Ask(ctx, answer.Question{
//	    SubjectID: subject.Id,
//	    Text:      "What fixes carbon in the Calvin cycle?",
//	})
//
// Every sub-package is usable on its own; the Library holds the shared
// stores and the wiring between them.
package lectern
