package entity

import (
	"fmt"
	"maps"
	"sort"
)

// Phase — фаза сессии сканирования.
type Phase string

const (
	PhaseIdle        Phase = "idle"        // сессия создана
	PhaseCapturing   Phase = "capturing"   // ждём изображение
	PhaseClassifying Phase = "classifying" // классификация, фильтр и сверка с инвентарём
	PhaseReviewing   Phase = "reviewing"   // пользователь проверяет новые позиции
	PhaseCommitting  Phase = "committing"  // запись в хранилище
	PhaseDone        Phase = "done"        // завершено
	PhaseError       Phase = "error"       // завершено с ошибкой
	PhaseCancelled   Phase = "cancelled"   // отменено пользователем
)

// transitions перечисляет допустимые переходы. Отмена обрабатывается отдельно.
var transitions = map[Phase][]Phase{
	PhaseIdle:        {PhaseCapturing},
	PhaseCapturing:   {PhaseClassifying},
	PhaseClassifying: {PhaseReviewing, PhaseError},
	PhaseReviewing:   {PhaseCommitting, PhaseError},
	PhaseCommitting:  {PhaseDone, PhaseError},
}

// Terminal сообщает, что из фазы больше нет обычных переходов.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseError || p == PhaseCancelled
}

// SessionError описывает, почему сессия перешла в PhaseError.
type SessionError struct {
	Kind    ErrorKind
	Label   string               // метка, на которой упал поиск (query_failed)
	Failed  map[string]ErrorKind // не записанные метки (commit_failed)
	Message string
}

// CommitResult представляет итог записи пакета новых позиций.
type CommitResult struct {
	Succeeded LabelSet
	Failed    map[string]ErrorKind
	IDs       map[string]string // метка -> идентификатор созданной записи
}

// OK сообщает, что весь пакет записан.
func (r *CommitResult) OK() bool {
	return len(r.Failed) == 0
}

// FailedLabels возвращает незаписанные метки в алфавитном порядке.
func (r *CommitResult) FailedLabels() LabelSet {
	labels := make([]string, 0, len(r.Failed))
	for l := range r.Failed {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return LabelSet(labels)
}

// ScanSession — состояние одного сканирования от снимка до записи.
// Меняется только через методы переходов.
type ScanSession struct {
	ID            string
	Phase         Phase
	Generation    uint64      // растёт при каждом переходе; по нему отбрасываются устаревшие результаты
	RawDetections []Detection // ответ классификатора как есть
	Labels        LabelSet    // метки после фильтра
	New           LabelSet    // ещё нет в инвентаре
	Existing      LabelSet    // уже есть в инвентаре
	Result        *CommitResult
	Err           *SessionError
}

// NewScanSession создаёт сессию в начальной фазе.
func NewScanSession(id string) *ScanSession {
	return &ScanSession{ID: id, Phase: PhaseIdle}
}

// Transition переводит сессию в новую фазу, если переход допустим.
func (s *ScanSession) Transition(to Phase) error {
	if to == PhaseCancelled {
		if s.Phase.Terminal() {
			return fmt.Errorf("cannot cancel session in phase %s", s.Phase)
		}
		s.advance(to)
		return nil
	}

	if s.Phase == PhaseError && s.Err != nil && s.Err.Kind == KindCommitFailed {
		// После частичной записи можно принять результат или повторить остаток.
		if to == PhaseDone || to == PhaseCommitting {
			s.advance(to)
			return nil
		}
	}

	for _, allowed := range transitions[s.Phase] {
		if allowed == to {
			s.advance(to)
			return nil
		}
	}
	return fmt.Errorf("transition %s -> %s is not allowed", s.Phase, to)
}

func (s *ScanSession) advance(to Phase) {
	s.Phase = to
	s.Generation++
}

// SetReconciled сохраняет результат фильтра и сверки и открывает просмотр.
func (s *ScanSession) SetReconciled(raw []Detection, labels, newLabels, existing LabelSet) error {
	if err := s.Transition(PhaseReviewing); err != nil {
		return err
	}
	s.RawDetections = raw
	s.Labels = labels
	s.New = newLabels
	s.Existing = existing
	return nil
}

// Fail переводит сессию в PhaseError.
func (s *ScanSession) Fail(serr *SessionError) error {
	if err := s.Transition(PhaseError); err != nil {
		return err
	}
	s.Err = serr
	return nil
}

// RemoveFromNew убирает метку из новых позиций. Повторный вызов ничего не меняет.
func (s *ScanSession) RemoveFromNew(label string) error {
	if s.Phase != PhaseReviewing {
		return fmt.Errorf("remove is not allowed in phase %s", s.Phase)
	}
	s.New = s.New.Without(NormalizeLabel(label))
	return nil
}

// Clone возвращает глубокую копию для чтения снаружи.
func (s *ScanSession) Clone() ScanSession {
	c := *s
	if s.RawDetections != nil {
		c.RawDetections = append([]Detection(nil), s.RawDetections...)
	}
	c.Labels = s.Labels.Clone()
	c.New = s.New.Clone()
	c.Existing = s.Existing.Clone()
	if s.Result != nil {
		r := CommitResult{
			Succeeded: s.Result.Succeeded.Clone(),
			Failed:    maps.Clone(s.Result.Failed),
			IDs:       maps.Clone(s.Result.IDs),
		}
		c.Result = &r
	}
	if s.Err != nil {
		e := *s.Err
		e.Failed = maps.Clone(s.Err.Failed)
		c.Err = &e
	}
	return c
}

// BeginCommit переводит сессию в запись и возвращает метки, которые нужно записать:
// новые позиции при первом подтверждении или незаписанный остаток при повторе.
func (s *ScanSession) BeginCommit() (LabelSet, error) {
	pending := s.New
	if s.Phase == PhaseError && s.Result != nil {
		pending = s.Result.FailedLabels()
	}
	if err := s.Transition(PhaseCommitting); err != nil {
		return nil, err
	}
	s.Err = nil
	return pending.Clone(), nil
}

// FinishCommit объединяет результат с предыдущими попытками и завершает запись.
func (s *ScanSession) FinishCommit(res *CommitResult) error {
	if s.Phase != PhaseCommitting {
		return fmt.Errorf("finish commit is not allowed in phase %s", s.Phase)
	}

	merged := &CommitResult{
		Failed: maps.Clone(res.Failed),
		IDs:    make(map[string]string),
	}
	if merged.Failed == nil {
		merged.Failed = make(map[string]ErrorKind)
	}
	if s.Result != nil {
		merged.Succeeded = append(merged.Succeeded, s.Result.Succeeded...)
		maps.Copy(merged.IDs, s.Result.IDs)
	}
	merged.Succeeded = NewLabelSet(append(merged.Succeeded, res.Succeeded...)...)
	maps.Copy(merged.IDs, res.IDs)
	s.Result = merged

	if merged.OK() {
		return s.Transition(PhaseDone)
	}
	return s.Fail(&SessionError{
		Kind:    KindCommitFailed,
		Failed:  maps.Clone(merged.Failed),
		Message: (&CommitError{Failed: merged.Failed}).Error(),
	})
}
