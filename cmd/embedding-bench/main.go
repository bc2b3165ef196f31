package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	"embedding-bench/internal/chunking"
	"embedding-bench/internal/config"
	"embedding-bench/internal/evaluation"
	"embedding-bench/internal/helper"
	"embedding-bench/internal/index"
	"embedding-bench/internal/models"
	"embedding-bench/internal/ollama"
	"embedding-bench/internal/parser"
	"embedding-bench/internal/rag"
	"embedding-bench/internal/store"
	"embedding-bench/internal/wer"
)

const promptFilePath = "evaluation_prompt.txt"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	_ = godotenv.Load()

	configPath := flag.String("config", "./configs/config.yaml", "Path to the config file")
	sessionID := flag.Int64("session", 0, "Session ID to operate on")
	stage := flag.String("stage", "", "Stage to run: import-ocr, chunk, embed, questions, rag, evaluate, wer, all, sessions, delete, prompt-save, prompt-reset, prompt-show")
	chunkSet := flag.String("chunk-set", string(models.ChunkSetMechanical), "Chunk set for rag/evaluate: mechanical, semantic, or all")
	topK := flag.Int("top-k", 0, "Override retrieval top-k (0 = config default)")
	pagesDir := flag.String("pages-dir", "", "Directory of page_<n>.txt OCR files for import-ocr")
	questionsFile := flag.String("questions", "", "Question file (.xlsx or .json) for the questions stage")
	promptFile := flag.String("prompt-file", "", "Template file for prompt-save")
	temperature := flag.Float64("temperature", -1, "Override generation temperature (-1 = config default)")
	topP := flag.Float64("top-p", -1, "Override generation top_p (-1 = config default)")
	maxPredict := flag.Int("max-predict", -1, "Override generation num_predict (-1 = config default)")
	numCtx := flag.Int("num-ctx", -1, "Override generation num_ctx (-1 = config default)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	set := models.ChunkSet(*chunkSet)
	switch set {
	case models.ChunkSetMechanical, models.ChunkSetSemantic, models.ChunkSetAll:
	default:
		log.Fatal().Str("chunk_set", *chunkSet).Msg("Unknown chunk set")
	}

	opts := cfg.LLM.Options(overridesFromFlags(*temperature, *topP, *maxPredict, *numCtx))
	k := cfg.RAG.TopK
	if *topK > 0 {
		k = *topK
	}

	ctx := context.Background()
	logger := log.With().Str("run", helper.RunID()).Logger()

	app := &app{
		cfg:    cfg,
		client: ollama.NewClient(cfg.Ollama, logger),
		log:    logger,
		opts:   opts,
		topK:   k,
	}

	switch *stage {
	case "prompt-show":
		fmt.Println(app.promptStore().Template())
		return
	case "prompt-reset":
		if err := app.promptStore().Reset(); err != nil {
			log.Fatal().Err(err).Msg("Error resetting prompt template")
		}
		log.Info().Msg("Prompt template reset to default")
		return
	case "prompt-save":
		if *promptFile == "" {
			log.Fatal().Msg("prompt-save requires -prompt-file")
		}
		data, err := os.ReadFile(*promptFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Error reading prompt file")
		}
		if err := app.promptStore().Save(string(data)); err != nil {
			log.Fatal().Err(err).Msg("Invalid prompt template")
		}
		log.Info().Msg("Prompt template saved")
		return
	}

	db := store.NewDB(store.Connect(&cfg.Database), cfg.Database.Debug)
	defer db.Close()
	if err := store.Init(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("Error initializing database")
	}
	app.db = db

	switch *stage {
	case "sessions":
		app.listSessions(ctx)
	case "import-ocr":
		app.importOCR(ctx, *sessionID, *pagesDir)
	case "chunk":
		app.chunk(ctx, mustSession(*sessionID))
	case "embed":
		app.embed(ctx, mustSession(*sessionID))
	case "questions":
		app.loadQuestions(ctx, mustSession(*sessionID), *questionsFile)
	case "rag":
		app.runRAG(ctx, mustSession(*sessionID), set)
	case "evaluate":
		app.evaluate(ctx, mustSession(*sessionID), set)
	case "wer":
		app.scoreWer(ctx, mustSession(*sessionID))
	case "all":
		id := mustSession(*sessionID)
		app.chunk(ctx, id)
		app.embed(ctx, id)
		if *questionsFile != "" {
			app.loadQuestions(ctx, id, *questionsFile)
		}
		app.runRAG(ctx, id, set)
		app.evaluate(ctx, id, set)
		app.scoreWer(ctx, id)
	case "delete":
		id := mustSession(*sessionID)
		if err := store.DeleteSession(ctx, db, id); err != nil {
			log.Fatal().Err(err).Msg("Error deleting session")
		}
		log.Info().Int64("session", id).Msg("Session deleted")
	default:
		log.Fatal().Str("stage", *stage).Msg("Unknown or missing stage")
	}
}

func mustSession(id int64) int64 {
	if id <= 0 {
		log.Fatal().Msg("A positive -session ID is required for this stage")
	}
	return id
}

func overridesFromFlags(temperature, topP float64, maxPredict, numCtx int) *config.GenOverrides {
	ov := &config.GenOverrides{}
	if temperature >= 0 {
		ov.Temperature = &temperature
	}
	if topP >= 0 {
		ov.TopP = &topP
	}
	if maxPredict >= 0 {
		ov.NumPredict = &maxPredict
	}
	if numCtx >= 0 {
		ov.NumCtx = &numCtx
	}
	return ov
}

type app struct {
	cfg    *config.Config
	db     *bun.DB
	client *ollama.Client
	log    zerolog.Logger
	opts   config.GenOptions
	topK   int
}

func (a *app) promptStore() *evaluation.PromptStore {
	return evaluation.NewPromptStore(promptFilePath, a.cfg.Models)
}

func (a *app) listSessions(ctx context.Context) {
	sessions, err := store.ListSessions(ctx, a.db)
	if err != nil {
		log.Fatal().Err(err).Msg("Error listing sessions")
	}
	helper.PrettyPrint(sessions)
}

var pageFilePattern = regexp.MustCompile(`^page_(\d+)\.txt$`)

// importOCR loads externally produced OCR text files (page_<n>.txt) into a
// session. The OCR call itself happens outside this tool.
func (a *app) importOCR(ctx context.Context, sessionID int64, dir string) {
	if dir == "" {
		log.Fatal().Msg("import-ocr requires -pages-dir")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Fatal().Err(err).Msg("Error reading pages directory")
	}

	var pages []models.Page
	for _, entry := range entries {
		m := pageFilePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		num, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			log.Fatal().Err(err).Str("file", entry.Name()).Msg("Error reading page file")
		}
		pages = append(pages, models.Page{PageNumber: num, OcrText: string(data)})
	}
	if len(pages) == 0 {
		log.Fatal().Str("dir", dir).Msg("No page_<n>.txt files found")
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].PageNumber < pages[j].PageNumber })

	if sessionID == 0 {
		session, err := store.CreateSession(ctx, a.db, filepath.Base(dir))
		if err != nil {
			log.Fatal().Err(err).Msg("Error creating session")
		}
		sessionID = session.ID
	}

	if err := store.ReplaceOcrPages(ctx, a.db, sessionID, pages); err != nil {
		log.Fatal().Err(err).Msg("Error storing OCR pages")
	}
	if err := store.SetTotalPages(ctx, a.db, sessionID, len(pages)); err != nil {
		log.Fatal().Err(err).Msg("Error updating session")
	}
	if err := store.SetStatus(ctx, a.db, sessionID, models.StatusOcrDone); err != nil {
		log.Fatal().Err(err).Msg("Error updating session status")
	}
	a.log.Info().Int64("session", sessionID).Int("pages", len(pages)).Msg("OCR pages imported")
}

func (a *app) chunk(ctx context.Context, sessionID int64) {
	pages, err := store.OcrPages(ctx, a.db, sessionID)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading OCR pages")
	}
	if len(pages) == 0 {
		log.Fatal().Int64("session", sessionID).Msg("No OCR pages found; run import-ocr first")
	}

	mechanical, err := chunking.Mechanical(pages, a.cfg.Chunking)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating mechanical chunks")
	}
	a.log.Info().Int("chunks", len(mechanical)).Msg("Mechanical chunking done")

	semantic := chunking.Semantic(ctx, a.client, a.cfg.LLM.Model, a.opts, pages, a.log)
	a.log.Info().Int("chunks", len(semantic)).Msg("Semantic chunking done")

	if err := store.ReplaceChunks(ctx, a.db, sessionID, mechanical, semantic); err != nil {
		log.Fatal().Err(err).Msg("Error storing chunks")
	}
	if err := store.SetStatus(ctx, a.db, sessionID, models.StatusChunked); err != nil {
		log.Fatal().Err(err).Msg("Error updating session status")
	}
}

// embed generates vectors for every chunk under every configured variant,
// one variant at a time, unloading each model before the next loads.
func (a *app) embed(ctx context.Context, sessionID int64) {
	var all []store.Chunk
	for _, set := range []models.ChunkSet{models.ChunkSetMechanical, models.ChunkSetSemantic} {
		chunks, err := store.Chunks(ctx, a.db, sessionID, set)
		if err != nil {
			log.Fatal().Err(err).Msg("Error loading chunks")
		}
		all = append(all, chunks...)
	}
	if len(all) == 0 {
		log.Fatal().Int64("session", sessionID).Msg("No chunks found; run chunk first")
	}

	rows := make([]store.ChunkEmbedding, len(all))
	texts := make([]string, len(all))
	for i, c := range all {
		texts[i] = c.ChunkText
		rows[i] = store.ChunkEmbedding{
			SessionID: sessionID,
			ChunkID:   c.ID,
			ChunkSet:  c.ChunkSet,
			ChunkText: c.ChunkText,
			Vectors:   make(map[string][]float32, len(a.cfg.Models)),
		}
	}

	for _, variant := range a.cfg.Models {
		a.log.Info().Str("variant", variant.Key).Int("chunks", len(texts)).Msg("Generating embeddings")
		vectors, err := a.client.EmbedBatch(ctx, variant.Model, texts, true)
		if err != nil {
			log.Fatal().Err(err).Str("variant", variant.Key).Msg("Error generating embeddings")
		}
		for i, vec := range vectors {
			if variant.Dim > 0 && len(vec) != variant.Dim {
				log.Fatal().Str("variant", variant.Key).Int("want", variant.Dim).Int("got", len(vec)).
					Msg("Embedding dimension mismatch")
			}
			rows[i].Vectors[variant.Key] = vec
		}
		a.log.Info().Str("variant", variant.Key).Int("embeddings", len(vectors)).Msg("Embeddings stored")
	}

	if err := store.ReplaceEmbeddings(ctx, a.db, sessionID, rows); err != nil {
		log.Fatal().Err(err).Msg("Error storing embeddings")
	}
	if err := store.SetStatus(ctx, a.db, sessionID, models.StatusEmbedded); err != nil {
		log.Fatal().Err(err).Msg("Error updating session status")
	}
}

func (a *app) loadQuestions(ctx context.Context, sessionID int64, path string) {
	if path == "" {
		log.Fatal().Msg("questions stage requires -questions")
	}
	questions, err := parser.LoadQuestions(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading questions")
	}
	if err := store.ReplaceQuestions(ctx, a.db, sessionID, questions); err != nil {
		log.Fatal().Err(err).Msg("Error storing questions")
	}
	a.log.Info().Int("count", len(questions)).Msg("Questions saved")
}

func (a *app) runRAG(ctx context.Context, sessionID int64, set models.ChunkSet) {
	embeddings, err := store.Embeddings(ctx, a.db, sessionID, set)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading embeddings")
	}

	candidatesByModel := make(map[string][]index.Candidate, len(a.cfg.Models))
	for _, variant := range a.cfg.Models {
		var candidates []index.Candidate
		for _, row := range embeddings {
			vec, ok := row.Vectors[variant.Key]
			if !ok {
				continue
			}
			candidates = append(candidates, index.Candidate{
				Text:   row.ChunkText,
				Vector: vec,
				Origin: row.ChunkSet,
			})
		}
		candidatesByModel[variant.Key] = candidates
		a.log.Info().Str("variant", variant.Key).Int("embeddings", len(candidates)).Msg("Embeddings loaded")
	}
	if allEmpty(candidatesByModel) {
		log.Fatal().Msg("No embeddings found; run embed first")
	}

	questions, err := store.Questions(ctx, a.db, sessionID)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading questions")
	}
	if len(questions) == 0 {
		log.Fatal().Msg("No questions found; run questions first")
	}

	pipeline := rag.NewPipeline(a.client, a.client, a.cfg.LLM.Model, a.cfg.Models, a.topK, a.log)
	results, err := pipeline.Run(ctx, questions, candidatesByModel, a.opts)
	if err != nil {
		log.Fatal().Err(err).Msg("RAG pipeline failed")
	}

	keys := make([]string, len(a.cfg.Models))
	for i, v := range a.cfg.Models {
		keys[i] = v.Key
	}
	if err := store.ReplaceAnswers(ctx, a.db, sessionID, set, results, keys); err != nil {
		log.Fatal().Err(err).Msg("Error storing RAG results")
	}
	if err := store.SetStatus(ctx, a.db, sessionID, models.StatusRagDone); err != nil {
		log.Fatal().Err(err).Msg("Error updating session status")
	}
	a.log.Info().Int("questions", len(results)).Str("chunk_set", string(set)).Msg("RAG pipeline done")
}

func (a *app) evaluate(ctx context.Context, sessionID int64, set models.ChunkSet) {
	records, err := store.Answers(ctx, a.db, sessionID, set)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading RAG results")
	}
	if len(records) == 0 {
		log.Fatal().Msg("No RAG results found; run rag first")
	}

	results := groupAnswers(records)
	evaluator := evaluation.NewEvaluator(a.client, a.cfg.LLM.Model, a.cfg.Models, a.promptStore(), a.log)
	evals := evaluator.EvaluateAll(ctx, results, a.opts)

	if err := store.ApplyEvaluations(ctx, a.db, sessionID, set, evals); err != nil {
		log.Fatal().Err(err).Msg("Error storing evaluations")
	}
	if err := store.SetStatus(ctx, a.db, sessionID, models.StatusEvaluated); err != nil {
		log.Fatal().Err(err).Msg("Error updating session status")
	}

	for _, ev := range evals {
		event := a.log.Info().Int("question", ev.Number)
		for key, score := range ev.Scores {
			event = event.Float64(key, score)
		}
		if ev.Err != "" {
			event = event.Str("error", ev.Err)
		}
		event.Msg("Question evaluated")
	}
}

func (a *app) scoreWer(ctx context.Context, sessionID int64) {
	pages, err := store.OcrPages(ctx, a.db, sessionID)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading OCR pages")
	}
	if len(pages) == 0 {
		log.Fatal().Msg("No OCR pages found; run import-ocr first")
	}

	records := wer.ScoreSession(pages, wer.DirStore{Dir: a.cfg.WER.ReferenceDir})
	if err := store.ReplaceWerResults(ctx, a.db, sessionID, records); err != nil {
		log.Fatal().Err(err).Msg("Error storing WER results")
	}
	a.log.Info().Int("pages", len(records)).Float64("average_wer", wer.Mean(records)).Msg("WER scoring done")
}

// groupAnswers rebuilds per-question results from stored answer rows so
// the evaluator sees the same shape the RAG pipeline produced.
func groupAnswers(records []store.AnswerRecord) []models.QuestionResult {
	byNumber := make(map[int]*models.QuestionResult)
	var order []int
	for _, r := range records {
		qr, ok := byNumber[r.QuestionNumber]
		if !ok {
			qr = &models.QuestionResult{
				Number:          r.QuestionNumber,
				Text:            r.QuestionText,
				ReferenceAnswer: r.ReferenceAnswer,
				ByModel:         make(map[string]models.ModelResult),
			}
			byNumber[r.QuestionNumber] = qr
			order = append(order, r.QuestionNumber)
		}
		qr.ByModel[r.ModelKey] = models.ModelResult{
			Retrieved: r.Retrieved,
			Answer:    r.Answer,
			Prompt:    r.Prompt,
			Err:       r.GenError,
		}
	}
	sort.Ints(order)

	results := make([]models.QuestionResult, len(order))
	for i, num := range order {
		results[i] = *byNumber[num]
	}
	return results
}

func allEmpty(candidates map[string][]index.Candidate) bool {
	for _, c := range candidates {
		if len(c) > 0 {
			return false
		}
	}
	return true
}
