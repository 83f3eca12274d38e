package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pantry-bot/internal/domain/entity"
	"pantry-bot/internal/infrastructure/vision"
)

func newTestScanService(store *faultyStore, classifier classifierFunc, opts ...ScanOption) *ScanService {
	return NewScanService(classifier, NewReconciler(store, 2, nil), NewCommitter(store, 2, nil), opts...)
}

func capturing(t *testing.T, svc *ScanService) string {
	t.Helper()
	sess := svc.NewSession()
	require.Equal(t, entity.PhaseIdle, sess.Phase)
	sess, err := svc.StartCapture(sess.ID)
	require.NoError(t, err)
	require.Equal(t, entity.PhaseCapturing, sess.Phase)
	return sess.ID
}

func TestScanService_ScanReviewCommit(t *testing.T) {
	store := newFaultyStore()
	ctx := context.Background()
	_, err := store.Insert(ctx, entity.NewIngredientFields("rice"))
	require.NoError(t, err)

	svc := newTestScanService(store, staticClassifier(
		entity.Detection{Label: "shrimp", Confidence: 0.9},
		entity.Detection{Label: "Rice", Confidence: 0.8},
		entity.Detection{Label: "shrimp", Confidence: 0.9},
		entity.Detection{Label: "tofu", Confidence: 0.5},
	))
	id := capturing(t, svc)

	sess, err := svc.ImageReady(ctx, id, []byte("jpeg"))
	require.NoError(t, err)
	require.Equal(t, entity.PhaseReviewing, sess.Phase)
	require.Len(t, sess.RawDetections, 4)
	require.Equal(t, entity.LabelSet{"shrimp", "rice"}, sess.Labels)
	require.Equal(t, entity.LabelSet{"shrimp"}, sess.New)
	require.Equal(t, entity.LabelSet{"rice"}, sess.Existing)

	sess, err = svc.Confirm(ctx, id)
	require.NoError(t, err)
	require.Equal(t, entity.PhaseDone, sess.Phase)
	require.Equal(t, entity.LabelSet{"shrimp"}, sess.Result.Succeeded)
	require.Empty(t, sess.Result.Failed)
	require.Equal(t, []string{"rice", "shrimp"}, store.names(ctx))
}

func TestScanService_RemoveFalsePositiveBeforeCommit(t *testing.T) {
	store := newFaultyStore()
	ctx := context.Background()
	svc := newTestScanService(store, staticClassifier(
		entity.Detection{Label: "udon", Confidence: 0.9},
		entity.Detection{Label: "ramen", Confidence: 0.9},
	))
	id := capturing(t, svc)

	_, err := svc.ImageReady(ctx, id, []byte("jpeg"))
	require.NoError(t, err)

	sess, err := svc.RemoveFromNew(id, "ramen")
	require.NoError(t, err)
	sess, err = svc.RemoveFromNew(id, "ramen")
	require.NoError(t, err)
	require.Equal(t, entity.LabelSet{"udon"}, sess.New)

	_, err = svc.Confirm(ctx, id)
	require.NoError(t, err)
	require.Equal(t, []string{"udon"}, store.names(ctx))
}

func TestScanService_ClassifierTimeout(t *testing.T) {
	store := newFaultyStore()
	ctx := context.Background()
	svc := newTestScanService(store, func(ctx context.Context, image []byte) ([]entity.Detection, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, WithClassifyTimeout(20*time.Millisecond))
	id := capturing(t, svc)

	sess, err := svc.ImageReady(ctx, id, []byte("jpeg"))
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, entity.PhaseError, sess.Phase)
	require.Equal(t, entity.KindNetwork, sess.Err.Kind)
	require.Empty(t, store.names(ctx))

	_, err = svc.StartCapture(id)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestScanService_ClassifierErrorKindIsKept(t *testing.T) {
	svc := newTestScanService(newFaultyStore(), func(ctx context.Context, image []byte) ([]entity.Detection, error) {
		return nil, &entity.ClassifierError{Kind: entity.KindInvalidResponse, Err: errors.New("bad json")}
	})
	id := capturing(t, svc)

	sess, err := svc.ImageReady(context.Background(), id, []byte("jpeg"))
	require.Error(t, err)
	require.Equal(t, entity.KindInvalidResponse, sess.Err.Kind)
}

func TestScanService_EmptyImageRejectedByPreprocessor(t *testing.T) {
	called := false
	svc := newTestScanService(newFaultyStore(), func(ctx context.Context, image []byte) ([]entity.Detection, error) {
		called = true
		return nil, nil
	}, WithPreprocessor(vision.NewPreprocessor(0)))
	id := capturing(t, svc)

	sess, err := svc.ImageReady(context.Background(), id, nil)
	require.ErrorIs(t, err, entity.ErrEmptyImage)
	require.Equal(t, entity.KindInvalidImage, sess.Err.Kind)
	require.False(t, called)
}

func TestScanService_ReconcileFailureBlocksReview(t *testing.T) {
	store := newFaultyStore()
	store.failQuery["rice"] = true
	svc := newTestScanService(store, staticClassifier(
		entity.Detection{Label: "shrimp", Confidence: 0.9},
		entity.Detection{Label: "rice", Confidence: 0.9},
	))
	id := capturing(t, svc)

	sess, err := svc.ImageReady(context.Background(), id, []byte("jpeg"))
	require.Error(t, err)
	require.Equal(t, entity.PhaseError, sess.Phase)
	require.Equal(t, entity.KindQueryFailed, sess.Err.Kind)
	require.Equal(t, "rice", sess.Err.Label)
	require.Empty(t, sess.New)
	require.Empty(t, sess.Existing)

	_, err = svc.Confirm(context.Background(), id)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestScanService_PartialCommit(t *testing.T) {
	store := newFaultyStore()
	store.failInsert["a"] = true
	ctx := context.Background()
	svc := newTestScanService(store, staticClassifier(
		entity.Detection{Label: "a", Confidence: 0.9},
		entity.Detection{Label: "b", Confidence: 0.9},
	))
	id := capturing(t, svc)
	_, err := svc.ImageReady(ctx, id, []byte("jpeg"))
	require.NoError(t, err)

	sess, err := svc.Confirm(ctx, id)
	var ce *entity.CommitError
	require.True(t, errors.As(err, &ce))
	require.Equal(t, map[string]entity.ErrorKind{"a": entity.KindInsertFailed}, ce.Failed)
	require.Equal(t, entity.PhaseError, sess.Phase)
	require.Equal(t, entity.KindCommitFailed, sess.Err.Kind)
	require.Equal(t, entity.LabelSet{"b"}, sess.Result.Succeeded)
	require.Equal(t, []string{"b"}, store.names(ctx))

	delete(store.failInsert, "a")
	sess, err = svc.RetryFailed(ctx, id)
	require.NoError(t, err)
	require.Equal(t, entity.PhaseDone, sess.Phase)
	require.ElementsMatch(t, entity.LabelSet{"a", "b"}, sess.Result.Succeeded)
	require.ElementsMatch(t, []string{"a", "b"}, store.names(ctx))
}

func TestScanService_AcceptPartial(t *testing.T) {
	store := newFaultyStore()
	store.failInsert["a"] = true
	ctx := context.Background()
	svc := newTestScanService(store, staticClassifier(
		entity.Detection{Label: "a", Confidence: 0.9},
		entity.Detection{Label: "b", Confidence: 0.9},
	))
	id := capturing(t, svc)
	_, err := svc.ImageReady(ctx, id, []byte("jpeg"))
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, id)
	require.Error(t, err)

	sess, err := svc.AcceptPartial(id)
	require.NoError(t, err)
	require.Equal(t, entity.PhaseDone, sess.Phase)
	require.Equal(t, entity.LabelSet{"a"}, sess.Result.FailedLabels())

	_, err = svc.AcceptPartial(id)
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.NoError(t, svc.Release(id))
	_, err = svc.Session(id)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestScanService_ConfirmEmptyNewSet(t *testing.T) {
	store := newFaultyStore()
	svc := newTestScanService(store, staticClassifier())
	id := capturing(t, svc)

	_, err := svc.ImageReady(context.Background(), id, []byte("jpeg"))
	require.NoError(t, err)
	sess, err := svc.Confirm(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, entity.PhaseDone, sess.Phase)
	require.Empty(t, store.names(context.Background()))
}

// blockingClassifier ждёт сигнала, чтобы тест мог вмешаться во время перехода.
func blockingClassifier(started chan<- struct{}, release <-chan struct{}) classifierFunc {
	return func(ctx context.Context, image []byte) ([]entity.Detection, error) {
		close(started)
		<-release
		return []entity.Detection{{Label: "shrimp", Confidence: 0.9}}, nil
	}
}

func TestScanService_RejectsOverlappingTransitions(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	svc := newTestScanService(newFaultyStore(), blockingClassifier(started, release))
	id := capturing(t, svc)

	done := make(chan error, 1)
	go func() {
		_, err := svc.ImageReady(context.Background(), id, []byte("jpeg"))
		done <- err
	}()
	<-started

	_, err := svc.RemoveFromNew(id, "shrimp")
	require.ErrorIs(t, err, ErrTransitionInFlight)
	_, err = svc.ImageReady(context.Background(), id, []byte("jpeg"))
	require.ErrorIs(t, err, ErrTransitionInFlight)
	_, err = svc.Confirm(context.Background(), id)
	require.ErrorIs(t, err, ErrTransitionInFlight)

	close(release)
	require.NoError(t, <-done)

	sess, err := svc.Session(id)
	require.NoError(t, err)
	require.Equal(t, entity.PhaseReviewing, sess.Phase)
}

func TestScanService_CancelDiscardsInFlightResult(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	store := newFaultyStore()
	svc := newTestScanService(store, blockingClassifier(started, release))
	id := capturing(t, svc)

	done := make(chan error, 1)
	go func() {
		_, err := svc.ImageReady(context.Background(), id, []byte("jpeg"))
		done <- err
	}()
	<-started

	sess, err := svc.Cancel(id)
	require.NoError(t, err)
	require.Equal(t, entity.PhaseCancelled, sess.Phase)

	close(release)
	require.ErrorIs(t, <-done, ErrSessionStale)

	_, err = svc.Session(id)
	require.ErrorIs(t, err, ErrSessionNotFound)
	require.Empty(t, store.names(context.Background()))
}

func TestScanService_TerminalSessionsStayTerminal(t *testing.T) {
	svc := newTestScanService(newFaultyStore(), staticClassifier())
	id := capturing(t, svc)
	_, err := svc.ImageReady(context.Background(), id, []byte("jpeg"))
	require.NoError(t, err)
	_, err = svc.Confirm(context.Background(), id)
	require.NoError(t, err)

	_, err = svc.Cancel(id)
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.StartCapture(id)
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.RemoveFromNew(id, "x")
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestScanService_ReleaseRequiresTerminalPhase(t *testing.T) {
	svc := newTestScanService(newFaultyStore(), staticClassifier())
	id := capturing(t, svc)

	require.ErrorIs(t, svc.Release(id), ErrInvalidTransition)
	require.ErrorIs(t, svc.Release("missing"), ErrSessionNotFound)
}

func TestScanService_ImageReadyRequiresCapture(t *testing.T) {
	svc := newTestScanService(newFaultyStore(), staticClassifier())
	sess := svc.NewSession()

	_, err := svc.ImageReady(context.Background(), sess.ID, []byte("jpeg"))
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.ImageReady(context.Background(), "missing", []byte("jpeg"))
	require.ErrorIs(t, err, ErrSessionNotFound)
}
