package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"pantry-bot/internal/domain/entity"
	"pantry-bot/internal/domain/port"
)

// DefaultClassifyTimeout ограничивает обращение к классификатору.
const DefaultClassifyTimeout = 30 * time.Second

var (
	ErrSessionNotFound    = errors.New("scan session not found")
	ErrInvalidTransition  = errors.New("invalid session transition")
	ErrTransitionInFlight = errors.New("another transition is in progress")
	ErrSessionStale       = errors.New("session was cancelled while the operation was running")
)

// sessionSlot хранит сессию и признак незавершённого перехода.
type sessionSlot struct {
	session *entity.ScanSession
	busy    bool
}

// ScanService ведёт сессии сканирования: снимок → классификация → сверка → просмотр → запись.
// Каждая сессия принадлежит одному владельцу; параллельный переход по той же сессии отклоняется.
type ScanService struct {
	classifier      port.Classifier
	preprocessor    port.ImagePreprocessor
	reconciler      *Reconciler
	committer       *Committer
	threshold       float64
	classifyTimeout time.Duration
	logger          *slog.Logger

	mu       sync.Mutex
	sessions map[string]*sessionSlot
}

// ScanOption настраивает ScanService.
type ScanOption func(*ScanService)

// WithThreshold задаёт порог уверенности фильтра.
func WithThreshold(t float64) ScanOption {
	return func(s *ScanService) {
		s.threshold = t
	}
}

// WithClassifyTimeout задаёт таймаут обращения к классификатору.
func WithClassifyTimeout(d time.Duration) ScanOption {
	return func(s *ScanService) {
		if d > 0 {
			s.classifyTimeout = d
		}
	}
}

// WithPreprocessor подключает подготовку снимка перед классификацией.
func WithPreprocessor(p port.ImagePreprocessor) ScanOption {
	return func(s *ScanService) {
		s.preprocessor = p
	}
}

// WithScanLogger задаёт логгер.
func WithScanLogger(logger *slog.Logger) ScanOption {
	return func(s *ScanService) {
		s.logger = logger
	}
}

// NewScanService создаёт оркестратор сессий.
func NewScanService(classifier port.Classifier, reconciler *Reconciler, committer *Committer, opts ...ScanOption) *ScanService {
	s := &ScanService{
		classifier:      classifier,
		reconciler:      reconciler,
		committer:       committer,
		threshold:       DefaultConfidenceThreshold,
		classifyTimeout: DefaultClassifyTimeout,
		sessions:        make(map[string]*sessionSlot),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// NewSession создаёт сессию в фазе idle.
func (s *ScanService) NewSession() entity.ScanSession {
	session := entity.NewScanSession(uuid.NewString())

	s.mu.Lock()
	s.sessions[session.ID] = &sessionSlot{session: session}
	s.mu.Unlock()

	s.logger.Info("scan session created", "session", session.ID)
	return session.Clone()
}

// Session возвращает снимок состояния сессии.
func (s *ScanService) Session(id string) (entity.ScanSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.sessions[id]
	if !ok {
		return entity.ScanSession{}, ErrSessionNotFound
	}
	return slot.session.Clone(), nil
}

// StartCapture переводит сессию в ожидание снимка.
func (s *ScanService) StartCapture(id string) (entity.ScanSession, error) {
	return s.update(id, func(ss *entity.ScanSession) error {
		return ss.Transition(entity.PhaseCapturing)
	})
}

// ImageReady классифицирует снимок, фильтрует метки и сверяет их с инвентарём.
// Сессия переходит в reviewing или в error; во втором случае возвращается и сама ошибка.
// Если сессию отменили во время работы, результат отбрасывается с ErrSessionStale.
func (s *ScanService) ImageReady(ctx context.Context, id string, image []byte) (entity.ScanSession, error) {
	gen, err := s.begin(id, func(ss *entity.ScanSession) error {
		return ss.Transition(entity.PhaseClassifying)
	})
	if err != nil {
		return entity.ScanSession{}, err
	}

	raw, labels, part, procErr := s.process(ctx, image)

	snap, err := s.finish(id, gen, func(ss *entity.ScanSession) error {
		if procErr != nil {
			return ss.Fail(sessionError(procErr))
		}
		return ss.SetReconciled(raw, labels, part.New, part.Existing)
	})
	if err != nil {
		return snap, err
	}
	return snap, procErr
}

// process выполняет классификацию, фильтр и сверку.
func (s *ScanService) process(ctx context.Context, image []byte) ([]entity.Detection, entity.LabelSet, *Partition, error) {
	if s.preprocessor != nil {
		prepared, err := s.preprocessor.Prepare(image)
		if err != nil {
			return nil, nil, nil, &entity.ClassifierError{Kind: entity.KindInvalidImage, Err: err}
		}
		image = prepared
	}

	cctx, cancel := context.WithTimeout(ctx, s.classifyTimeout)
	raw, err := s.classifier.Classify(cctx, image)
	cancel()
	if err != nil {
		var ce *entity.ClassifierError
		if !errors.As(err, &ce) {
			err = &entity.ClassifierError{Kind: entity.KindNetwork, Err: err}
		}
		return nil, nil, nil, err
	}

	labels := FilterDetections(raw, s.threshold)
	s.logger.Debug("detections filtered", "raw", len(raw), "labels", len(labels), "threshold", s.threshold)

	part, err := s.reconciler.Reconcile(ctx, labels)
	if err != nil {
		return nil, nil, nil, err
	}
	return raw, labels, part, nil
}

// RemoveFromNew убирает ложное срабатывание из новых позиций.
func (s *ScanService) RemoveFromNew(id, label string) (entity.ScanSession, error) {
	return s.update(id, func(ss *entity.ScanSession) error {
		return ss.RemoveFromNew(label)
	})
}

// Confirm записывает новые позиции. При частичной неудаче сессия переходит в error
// с перечнем незаписанных меток и возвращается *entity.CommitError.
func (s *ScanService) Confirm(ctx context.Context, id string) (entity.ScanSession, error) {
	return s.commit(ctx, id, func(ss *entity.ScanSession) error {
		if ss.Phase != entity.PhaseReviewing {
			return fmt.Errorf("confirm is not allowed in phase %s", ss.Phase)
		}
		return nil
	})
}

// RetryFailed повторяет запись только незаписанных меток после частичной неудачи.
func (s *ScanService) RetryFailed(ctx context.Context, id string) (entity.ScanSession, error) {
	return s.commit(ctx, id, requireCommitFailure)
}

// AcceptPartial завершает сессию, принимая частично записанный результат.
func (s *ScanService) AcceptPartial(id string) (entity.ScanSession, error) {
	return s.update(id, func(ss *entity.ScanSession) error {
		if err := requireCommitFailure(ss); err != nil {
			return err
		}
		return ss.Transition(entity.PhaseDone)
	})
}

func (s *ScanService) commit(ctx context.Context, id string, check func(*entity.ScanSession) error) (entity.ScanSession, error) {
	var pending entity.LabelSet
	gen, err := s.begin(id, func(ss *entity.ScanSession) error {
		if err := check(ss); err != nil {
			return err
		}
		p, err := ss.BeginCommit()
		pending = p
		return err
	})
	if err != nil {
		return entity.ScanSession{}, err
	}

	res := s.committer.Commit(ctx, pending)

	snap, err := s.finish(id, gen, func(ss *entity.ScanSession) error {
		return ss.FinishCommit(res)
	})
	if err != nil {
		return snap, err
	}
	if snap.Phase == entity.PhaseError {
		return snap, &entity.CommitError{Failed: snap.Err.Failed}
	}
	return snap, nil
}

// Cancel отменяет сессию в любой незавершённой фазе, в том числе во время перехода.
// Хранилище не трогается; результат незавершённой операции будет отброшен.
func (s *ScanService) Cancel(id string) (entity.ScanSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.sessions[id]
	if !ok {
		return entity.ScanSession{}, ErrSessionNotFound
	}
	if err := slot.session.Transition(entity.PhaseCancelled); err != nil {
		return slot.session.Clone(), fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	}
	delete(s.sessions, id)

	s.logger.Info("scan session cancelled", "session", id)
	return slot.session.Clone(), nil
}

// Release удаляет завершённую сессию.
func (s *ScanService) Release(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if !slot.session.Phase.Terminal() {
		return fmt.Errorf("%w: session is still in phase %s", ErrInvalidTransition, slot.session.Phase)
	}
	delete(s.sessions, id)
	return nil
}

// update выполняет синхронный переход под блокировкой.
func (s *ScanService) update(id string, fn func(*entity.ScanSession) error) (entity.ScanSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.sessions[id]
	if !ok {
		return entity.ScanSession{}, ErrSessionNotFound
	}
	if slot.busy {
		return slot.session.Clone(), ErrTransitionInFlight
	}
	if err := fn(slot.session); err != nil {
		return slot.session.Clone(), fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	}

	s.logger.Info("scan session updated", "session", id, "phase", slot.session.Phase)
	return slot.session.Clone(), nil
}

// begin начинает асинхронный переход и возвращает поколение, с которым он стартовал.
func (s *ScanService) begin(id string, fn func(*entity.ScanSession) error) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.sessions[id]
	if !ok {
		return 0, ErrSessionNotFound
	}
	if slot.busy {
		return 0, ErrTransitionInFlight
	}
	if err := fn(slot.session); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	}
	slot.busy = true

	s.logger.Info("scan session updated", "session", id, "phase", slot.session.Phase)
	return slot.session.Generation, nil
}

// finish применяет результат, только если сессия всё ещё того же поколения.
func (s *ScanService) finish(id string, gen uint64, fn func(*entity.ScanSession) error) (entity.ScanSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.sessions[id]
	if !ok || slot.session.Generation != gen {
		s.logger.Info("discarding result of replaced session", "session", id)
		return entity.ScanSession{}, ErrSessionStale
	}
	slot.busy = false
	if err := fn(slot.session); err != nil {
		return slot.session.Clone(), fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	}

	s.logger.Info("scan session updated", "session", id, "phase", slot.session.Phase)
	return slot.session.Clone(), nil
}

func requireCommitFailure(ss *entity.ScanSession) error {
	if ss.Phase != entity.PhaseError || ss.Err == nil || ss.Err.Kind != entity.KindCommitFailed {
		return fmt.Errorf("phase %s has no failed commit", ss.Phase)
	}
	return nil
}

// sessionError переводит ошибку конвейера в описание для слоя представления.
func sessionError(err error) *entity.SessionError {
	serr := &entity.SessionError{Kind: entity.KindOf(err), Message: err.Error()}
	if serr.Kind == "" {
		serr.Kind = entity.KindNetwork
	}
	var se *entity.StoreError
	if errors.As(err, &se) {
		serr.Label = se.Label
	}
	return serr
}
