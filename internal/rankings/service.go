package rankings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"talentranker/internal/documents"
	"talentranker/internal/ledger"
	"talentranker/internal/queue"
	"talentranker/internal/scoring"
	"talentranker/internal/shared/metrics"
	"talentranker/internal/shared/storage/object"
	"talentranker/internal/shared/telemetry"
	"talentranker/internal/shared/util"
)

const (
	defaultMaxParallel  = 4
	defaultScoreTimeout = 30 * time.Second
	maxErrorLen         = 500
	listLimit           = 50

	msgExtractionFailed = "extraction failed"
	msgResumeMissing    = "resume not found"
	msgScoringTimeout   = "scoring request timeout"
)

// Ledger is the quota ledger as seen by the orchestrator.
type Ledger interface {
	Reserve(ctx context.Context, subscriberID string, jdDelta, cvDelta int) (ledger.Reservation, error)
	Commit(ctx context.Context, reservationID string) error
	Release(ctx context.Context, reservationID string) error
	Bind(ctx context.Context, reservationID, rankingID string) error
}

// Documents stores job descriptions and resumes.
type Documents interface {
	NewJobDescription(subscriberID, title, filename, content string) documents.JobDescription
	NewResume(subscriberID, filename, content string, sizeBytes int64, failed bool) documents.Resume
	Archive(ctx context.Context, subscriberID string, kind object.Kind, filename string, data []byte) string
	SaveBatch(ctx context.Context, batch documents.Batch) error
	ResolveJobDescription(ctx context.Context, subscriberID, jdID string) (documents.JobDescription, error)
	ResolveResumes(ctx context.Context, subscriberID string, resumeIDs []string) ([]documents.Resume, error)
	LoadForRecord(ctx context.Context, subscriberID, jdID string, resumeIDs []string) (documents.JobDescription, []documents.Resume, error)
	IncrementRankedCount(ctx context.Context, jdID string, n int) error
}

// Extractor turns uploaded bytes into text.
type Extractor interface {
	Extract(ctx context.Context, data []byte, mediaType string) (string, error)
}

// Service orchestrates ranking requests: quota, extraction, scoring, aggregation and commit.
type Service struct {
	Repo         Repo
	Ledger       Ledger
	Documents    Documents
	Extractor    Extractor
	Scorer       scoring.Client
	Queue        queue.Client
	MaxParallel  int
	ScoreTimeout time.Duration
	Now          func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// item is one resume slot in a batch. A failed item is recorded without scoring.
type item struct {
	resumeID string
	filename string
	text     string
	failure  string
}

// prepared is a batch whose record has been persisted in processing.
type prepared struct {
	record    Record
	jobText   string
	items     []item
	startedAt time.Time
}

// Submit runs a ranking request. In async mode it returns the processing record
// once the job is queued; otherwise it returns the terminal record.
func (s *Service) Submit(ctx context.Context, req Request) (Record, error) {
	if err := s.validate(req); err != nil {
		return Record{}, err
	}
	p, err := s.prepare(ctx, req)
	if err != nil {
		return Record{}, err
	}

	// Artifacts and the record are durable from here on; the batch finishes even if the caller goes away.
	detached := context.WithoutCancel(ctx)
	if req.Async {
		return s.enqueue(detached, p)
	}
	return s.run(detached, p)
}

func (s *Service) validate(req Request) error {
	if strings.TrimSpace(req.SubscriberID) == "" {
		return invalid("subscriber is required")
	}
	sources := 0
	if strings.TrimSpace(req.JobDescriptionID) != "" {
		sources++
	}
	if req.JobDescriptionFile != nil {
		sources++
	}
	if strings.TrimSpace(req.JobDescriptionText) != "" {
		sources++
	}
	switch {
	case sources == 0:
		return invalid("Please provide a job description")
	case sources > 1:
		return invalid("Provide only one job description source")
	}
	if req.JobDescriptionFile != nil && len(req.JobDescriptionFile.Data) == 0 {
		return invalid("Job description file is empty")
	}

	resumes := len(req.ResumeFiles)
	for _, id := range req.ResumeIDs {
		if strings.TrimSpace(id) != "" {
			resumes++
		}
	}
	for _, text := range req.ResumeTexts {
		if strings.TrimSpace(text) == "" {
			return invalid("Resume text must not be empty")
		}
		resumes++
	}
	if resumes == 0 {
		return invalid("Please provide at least one resume")
	}
	if req.Async && s.Queue == nil {
		return invalid("Async mode is not enabled")
	}
	return nil
}

// prepare resolves ids, reserves quota, extracts text and persists the
// documents plus a processing record.
func (s *Service) prepare(ctx context.Context, req Request) (prepared, error) {
	var existingJD *documents.JobDescription
	if id := strings.TrimSpace(req.JobDescriptionID); id != "" {
		jd, err := s.Documents.ResolveJobDescription(ctx, req.SubscriberID, id)
		if err != nil {
			if errors.Is(err, documents.ErrNotFound) {
				return prepared{}, ErrJobDescriptionNotFound
			}
			return prepared{}, err
		}
		existingJD = &jd
	}
	var existing []documents.Resume
	if len(req.ResumeIDs) > 0 {
		found, err := s.Documents.ResolveResumes(ctx, req.SubscriberID, req.ResumeIDs)
		if err != nil {
			return prepared{}, err
		}
		if len(found) == 0 && len(req.ResumeFiles) == 0 && len(req.ResumeTexts) == 0 {
			return prepared{}, ErrNoResumesFound
		}
		existing = found
	}

	jdDelta := 0
	if existingJD == nil {
		jdDelta = 1
	}
	cvDelta := len(existing) + len(req.ResumeFiles) + len(req.ResumeTexts)

	reservation, err := s.Ledger.Reserve(ctx, req.SubscriberID, jdDelta, cvDelta)
	if err != nil {
		return prepared{}, err
	}
	release := func(cause error) {
		if err := s.Ledger.Release(context.WithoutCancel(ctx), reservation.ID); err != nil {
			telemetry.Error("ranking.release.failed", map[string]any{
				"request_id":     requestIDFromContext(ctx),
				"subscriber_id":  req.SubscriberID,
				"reservation_id": reservation.ID,
				"cause":          cause,
				"error":          err,
			})
		}
	}

	var (
		batch   documents.Batch
		jobText string
		jd      documents.JobDescription
	)
	switch {
	case existingJD != nil:
		jd = *existingJD
		jobText = jd.Content
	case req.JobDescriptionFile != nil:
		f := req.JobDescriptionFile
		text, err := s.Extractor.Extract(ctx, f.Data, f.MediaType)
		if err != nil {
			release(err)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return prepared{}, ctxErr
			}
			return prepared{}, &ExtractionError{Filename: f.Filename, Err: err}
		}
		jd = s.Documents.NewJobDescription(req.SubscriberID, req.JobTitle, f.Filename, text)
		jd.StorageKey = s.Documents.Archive(ctx, req.SubscriberID, object.KindJobDescription, f.Filename, f.Data)
		jobText = text
		batch.JobDescription = &jd
	default:
		jobText = strings.TrimSpace(req.JobDescriptionText)
		jd = s.Documents.NewJobDescription(req.SubscriberID, req.JobTitle, "", jobText)
		batch.JobDescription = &jd
	}

	items := make([]item, 0, cvDelta)
	for _, res := range existing {
		items = append(items, item{resumeID: res.ID, filename: res.Filename, text: res.Content})
	}
	for _, f := range req.ResumeFiles {
		text, extractErr := s.Extractor.Extract(ctx, f.Data, f.MediaType)
		if err := ctx.Err(); err != nil {
			release(err)
			return prepared{}, err
		}
		res := s.Documents.NewResume(req.SubscriberID, f.Filename, text, int64(len(f.Data)), extractErr != nil)
		res.StorageKey = s.Documents.Archive(ctx, req.SubscriberID, object.KindResume, f.Filename, f.Data)
		batch.Resumes = append(batch.Resumes, res)
		it := item{resumeID: res.ID, filename: res.Filename, text: res.Content}
		if extractErr != nil {
			it.failure = msgExtractionFailed
			telemetry.Warn("ranking.resume.extraction_failed", map[string]any{
				"request_id":    requestIDFromContext(ctx),
				"subscriber_id": req.SubscriberID,
				"resume_id":     res.ID,
				"filename":      f.Filename,
				"error":         extractErr,
			})
		}
		items = append(items, it)
	}
	for i, text := range req.ResumeTexts {
		text = strings.TrimSpace(text)
		res := s.Documents.NewResume(req.SubscriberID, fmt.Sprintf("Resume %d", i+1), text, int64(len(text)), false)
		batch.Resumes = append(batch.Resumes, res)
		items = append(items, item{resumeID: res.ID, filename: res.Filename, text: res.Content})
	}

	if err := ctx.Err(); err != nil {
		release(err)
		return prepared{}, err
	}
	// Bound reservations are skipped by the reaper; this ranking settles it.
	recordID := uuid.NewString()
	if err := s.Ledger.Bind(ctx, reservation.ID, recordID); err != nil {
		if !errors.Is(err, ledger.ErrReservationReleased) {
			release(err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return prepared{}, ctxErr
		}
		return prepared{}, &PersistenceError{Err: fmt.Errorf("bind reservation: %w", err)}
	}
	if err := s.Documents.SaveBatch(ctx, batch); err != nil {
		release(err)
		return prepared{}, &PersistenceError{Err: fmt.Errorf("save documents: %w", err)}
	}

	// Documents are persisted: every later failure commits the reservation.
	detached := context.WithoutCancel(ctx)
	now := s.now()
	resumeIDs := make([]string, 0, len(items))
	for _, it := range items {
		resumeIDs = append(resumeIDs, it.resumeID)
	}
	rec := Record{
		ID:               recordID,
		SubscriberID:     req.SubscriberID,
		JobDescriptionID: jd.ID,
		JobTitle:         jd.Title,
		ReservationID:    reservation.ID,
		ResumeIDs:        resumeIDs,
		Results:          []ResumeScore{},
		Status:           StatusProcessing,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.Repo.Create(detached, rec); err != nil {
		s.commit(detached, rec)
		return prepared{}, &PersistenceError{Err: fmt.Errorf("create ranking: %w", err)}
	}
	metrics.IncRankingStarted()
	telemetry.Info("ranking.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"subscriber_id":     rec.SubscriberID,
		"ranking_id":        rec.ID,
		"status":            string(StatusProcessing),
		"status_transition": "received->processing",
		"resume_count":      len(items),
		"jd_delta":          jdDelta,
		"cv_delta":          cvDelta,
	})
	return prepared{record: rec, jobText: jobText, items: items, startedAt: now}, nil
}

func (s *Service) enqueue(ctx context.Context, p prepared) (Record, error) {
	msg := queue.Message{
		RankingID:    p.record.ID,
		SubscriberID: p.record.SubscriberID,
		RequestID:    requestIDFromContext(ctx),
		EnqueuedAt:   s.now().Format(time.RFC3339),
		Version:      queue.MessageVersion,
	}
	if err := s.Queue.Send(ctx, msg); err != nil {
		failed := s.fail(ctx, p, fmt.Errorf("enqueue ranking: %w", err))
		return failed, &PersistenceError{RecordID: p.record.ID, Err: err}
	}
	telemetry.Info("ranking.enqueued", map[string]any{
		"request_id":    msg.RequestID,
		"subscriber_id": msg.SubscriberID,
		"ranking_id":    msg.RankingID,
	})
	return p.record, nil
}

// Process runs a queued ranking. Records that already finished are left untouched.
func (s *Service) Process(ctx context.Context, rankingID string) error {
	ctx = context.WithoutCancel(ctx)
	rec, err := s.Repo.GetByID(ctx, rankingID)
	if err != nil {
		return err
	}
	if rec.Status.Terminal() {
		telemetry.Info("ranking.process.skipped", map[string]any{
			"request_id": requestIDFromContext(ctx),
			"ranking_id": rec.ID,
			"status":     string(rec.Status),
		})
		return nil
	}

	p := prepared{record: rec, startedAt: rec.CreatedAt}
	jd, resumes, err := s.Documents.LoadForRecord(ctx, rec.SubscriberID, rec.JobDescriptionID, rec.ResumeIDs)
	if err != nil {
		s.fail(ctx, p, fmt.Errorf("load documents: %w", err))
		return err
	}
	byID := make(map[string]documents.Resume, len(resumes))
	for _, res := range resumes {
		byID[res.ID] = res
	}
	p.jobText = jd.Content
	p.items = make([]item, 0, len(rec.ResumeIDs))
	for _, id := range rec.ResumeIDs {
		res, ok := byID[id]
		switch {
		case !ok:
			p.items = append(p.items, item{resumeID: id, failure: msgResumeMissing})
		case res.Status == documents.StatusFailed:
			p.items = append(p.items, item{resumeID: id, filename: res.Filename, failure: msgExtractionFailed})
		default:
			p.items = append(p.items, item{resumeID: id, filename: res.Filename, text: res.Content})
		}
	}

	if _, err := s.run(ctx, p); err != nil {
		return err
	}
	return nil
}

// run scores, aggregates and commits a prepared batch.
func (s *Service) run(ctx context.Context, p prepared) (rec Record, err error) {
	ctx, span := telemetry.StartSpan(ctx, "rankings.run",
		attribute.String("ranking.id", p.record.ID),
		attribute.Int("ranking.resumes", len(p.items)),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	defer func() {
		if r := recover(); r != nil {
			perr := fmt.Errorf("panic: %v", r)
			rec = s.fail(ctx, p, perr)
			err = &PersistenceError{RecordID: p.record.ID, Err: perr}
		}
	}()

	if s.Scorer == nil {
		cause := errors.New("scoring client not configured")
		return s.fail(ctx, p, cause), &PersistenceError{RecordID: p.record.ID, Err: cause}
	}

	results := s.score(ctx, p)
	SortResults(results)

	s.commit(ctx, p.record)

	finishedAt := s.now()
	if err := s.Repo.Complete(ctx, p.record.ID, results, finishedAt); err != nil {
		if errors.Is(err, ErrAlreadyTerminal) {
			current, getErr := s.Repo.GetByID(ctx, p.record.ID)
			if getErr == nil {
				return current, nil
			}
		}
		cause := fmt.Errorf("complete ranking: %w", err)
		s.markFailed(ctx, p, cause)
		return Record{}, &PersistenceError{RecordID: p.record.ID, Err: cause}
	}

	if err := s.Documents.IncrementRankedCount(ctx, p.record.JobDescriptionID, len(results)); err != nil {
		telemetry.Warn("ranking.ranked_count.failed", map[string]any{
			"ranking_id":         p.record.ID,
			"job_description_id": p.record.JobDescriptionID,
			"error":              err,
		})
	}

	rec = p.record
	rec.Status = StatusCompleted
	rec.Results = results
	rec.UpdatedAt = finishedAt
	rec.CompletedAt = &finishedAt

	labels := make(map[scoring.Label]int, 3)
	for _, r := range results {
		labels[r.Label]++
	}
	for label, n := range labels {
		metrics.AddResumeResults(string(label), n)
	}
	duration := durationMs(p.startedAt, finishedAt)
	metrics.IncRankingFinished(string(StatusCompleted))
	metrics.ObserveRankingDurationMs(duration)
	telemetry.Info("ranking.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"subscriber_id":     rec.SubscriberID,
		"ranking_id":        rec.ID,
		"status":            string(StatusCompleted),
		"status_transition": "processing->completed",
		"duration_ms":       duration,
		"relevant":          labels[scoring.LabelRelevant],
		"errors":            labels[scoring.LabelError],
	})
	return rec, nil
}

// score produces one entry per item in input order. No item failure aborts its siblings.
func (s *Service) score(ctx context.Context, p prepared) []ResumeScore {
	results := make([]ResumeScore, len(p.items))
	limit := s.MaxParallel
	if limit <= 0 {
		limit = defaultMaxParallel
	}
	timeout := s.ScoreTimeout
	if timeout <= 0 {
		timeout = defaultScoreTimeout
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, it := range p.items {
		results[i] = ResumeScore{ResumeID: it.resumeID, Filename: it.filename}
		if it.failure != "" {
			results[i].Label = scoring.LabelError
			results[i].Error = it.failure
			continue
		}
		g.Go(func() error {
			results[i] = s.scoreOne(ctx, p.jobText, it, timeout)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Service) scoreOne(ctx context.Context, jobText string, it item, timeout time.Duration) (out ResumeScore) {
	out = ResumeScore{ResumeID: it.resumeID, Filename: it.filename}
	ctx, span := telemetry.StartSpan(ctx, "rankings.score", attribute.String("resume.id", it.resumeID))
	var err error
	defer func() { telemetry.EndSpan(span, err) }()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			out.Label = scoring.LabelError
			out.Confidence = 0
			out.Error = "scoring failed"
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	res, err := s.Scorer.Score(callCtx, jobText, it.text)
	if err != nil {
		out.Label = scoring.LabelError
		out.Error = scoringMessage(err)
		return out
	}
	out.Label = res.Label
	out.Confidence = res.Confidence
	return out
}

func scoringMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return msgScoringTimeout
	}
	return util.SanitizeMessage(err.Error(), maxErrorLen)
}

// commit applies the reservation. Bound reservations are not reaped, so a
// released one here was settled out of band; it is logged and the record still finishes.
func (s *Service) commit(ctx context.Context, rec Record) {
	if rec.ReservationID == "" {
		return
	}
	err := s.Ledger.Commit(ctx, rec.ReservationID)
	if err == nil {
		return
	}
	fields := map[string]any{
		"request_id":     requestIDFromContext(ctx),
		"subscriber_id":  rec.SubscriberID,
		"ranking_id":     rec.ID,
		"reservation_id": rec.ReservationID,
		"error":          err,
	}
	if errors.Is(err, ledger.ErrReservationReleased) {
		telemetry.Warn("ranking.commit.after_release", fields)
		return
	}
	telemetry.Error("ranking.commit.failed", fields)
}

// fail commits the reservation and moves the record to failed.
func (s *Service) fail(ctx context.Context, p prepared, cause error) Record {
	s.commit(ctx, p.record)
	return s.markFailed(ctx, p, cause)
}

func (s *Service) markFailed(ctx context.Context, p prepared, cause error) Record {
	msg := util.SanitizeMessage(cause.Error(), maxErrorLen)
	finishedAt := s.now()
	if err := s.Repo.Fail(ctx, p.record.ID, msg, finishedAt); err != nil {
		telemetry.Error("ranking.fail.update_failed", map[string]any{
			"ranking_id": p.record.ID,
			"error":      err,
			"cause":      msg,
		})
	}
	duration := durationMs(p.startedAt, finishedAt)
	metrics.IncRankingFinished(string(StatusFailed))
	metrics.ObserveRankingDurationMs(duration)
	telemetry.Info("ranking.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"subscriber_id":     p.record.SubscriberID,
		"ranking_id":        p.record.ID,
		"status":            string(StatusFailed),
		"status_transition": "processing->failed",
		"duration_ms":       duration,
		"error":             msg,
	})

	rec := p.record
	rec.Status = StatusFailed
	rec.Error = msg
	rec.UpdatedAt = finishedAt
	rec.CompletedAt = &finishedAt
	return rec
}

// Get returns a record owned by subscriberID.
func (s *Service) Get(ctx context.Context, subscriberID, id string) (Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Record{}, ErrNotFound
	}
	return s.Repo.Get(ctx, subscriberID, id)
}

// List returns the subscriber's most recent records, newest first.
func (s *Service) List(ctx context.Context, subscriberID string) ([]Record, error) {
	return s.Repo.ListBySubscriber(ctx, subscriberID, listLimit)
}

// Delete removes a finished record.
func (s *Service) Delete(ctx context.Context, subscriberID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	return s.Repo.Delete(ctx, subscriberID, id)
}

func durationMs(start, end time.Time) float64 {
	if start.IsZero() || end.IsZero() {
		return 0
	}
	return float64(end.Sub(start).Microseconds()) / 1000.0
}
