package telegram

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pantry-bot/internal/domain/entity"
)

func TestParseCallback(t *testing.T) {
	const sid = "0b9f4a0e-6a43-4f6e-9d1c-1f0e2d3c4b5a"

	tests := []struct {
		data      string
		action    string
		sessionID string
		index     int
		wantErr   bool
	}{
		{data: "ok:" + sid, action: actionConfirm, sessionID: sid},
		{data: "cancel:" + sid, action: actionCancel, sessionID: sid},
		{data: "retry:" + sid, action: actionRetry, sessionID: sid},
		{data: "accept:" + sid, action: actionAccept, sessionID: sid},
		{data: "rm:" + sid + ":3", action: actionRemove, sessionID: sid, index: 3},
		{data: "ok", wantErr: true},
		{data: "ok:", wantErr: true},
		{data: "ok:" + sid + ":1", wantErr: true},
		{data: "rm:3", wantErr: true},
		{data: "rm::3", wantErr: true},
		{data: "rm:" + sid + ":", wantErr: true},
		{data: "rm:" + sid + ":-1", wantErr: true},
		{data: "rm:" + sid + ":x", wantErr: true},
		{data: "drop:" + sid, wantErr: true},
		{data: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			action, sessionID, index, err := parseCallback(tt.data)
			if tt.wantErr {
				require.ErrorIs(t, err, errBadCallback)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.action, action)
			require.Equal(t, tt.sessionID, sessionID)
			require.Equal(t, tt.index, index)
		})
	}
}

func TestCallbackData_RoundTrip(t *testing.T) {
	const sid = "0b9f4a0e-6a43-4f6e-9d1c-1f0e2d3c4b5a"

	data := callbackData(actionRemove, sid, 12)
	require.LessOrEqual(t, len(data), 64)

	action, sessionID, index, err := parseCallback(data)
	require.NoError(t, err)
	require.Equal(t, actionRemove, action)
	require.Equal(t, sid, sessionID)
	require.Equal(t, 12, index)

	require.Equal(t, "accept:"+sid, callbackData(actionAccept, sid, 5))
	require.LessOrEqual(t, len(callbackData(actionCancel, sid, 0)), 64)
}

func reviewing() entity.ScanSession {
	return entity.ScanSession{
		ID:       "s1",
		Phase:    entity.PhaseReviewing,
		Labels:   entity.LabelSet{"shrimp", "rice", "egg"},
		New:      entity.LabelSet{"shrimp", "egg"},
		Existing: entity.LabelSet{"rice"},
	}
}

func TestReviewKeyboard_OnlyNewLabels(t *testing.T) {
	kb := reviewKeyboard(reviewing())

	require.Len(t, kb.InlineKeyboard, 3)
	require.Equal(t, "❌ shrimp", kb.InlineKeyboard[0][0].Text)
	require.Equal(t, "rm:s1:0", *kb.InlineKeyboard[0][0].CallbackData)
	// индекс берётся из Labels, а не из New
	require.Equal(t, "❌ egg", kb.InlineKeyboard[1][0].Text)
	require.Equal(t, "rm:s1:2", *kb.InlineKeyboard[1][0].CallbackData)
	require.Equal(t, "ok:s1", *kb.InlineKeyboard[2][0].CallbackData)
	require.Equal(t, "cancel:s1", *kb.InlineKeyboard[2][1].CallbackData)
}

func TestReviewText(t *testing.T) {
	text := reviewText(reviewing())
	require.Contains(t, text, "Новые:\n• shrimp\n• egg")
	require.Contains(t, text, "Уже в инвентаре:\n• rice")

	empty := reviewText(entity.ScanSession{Phase: entity.PhaseReviewing})
	require.Contains(t, empty, "Ничего не распознано")

	nothingNew := reviewing()
	nothingNew.New = nil
	require.Contains(t, reviewText(nothingNew), "Добавлять нечего")
}

func TestFailureText(t *testing.T) {
	s := entity.ScanSession{
		Phase:  entity.PhaseError,
		Result: &entity.CommitResult{Succeeded: entity.LabelSet{"egg"}},
		Err: &entity.SessionError{
			Kind:   entity.KindCommitFailed,
			Failed: map[string]entity.ErrorKind{"shrimp": entity.KindInsertFailed, "basil": entity.KindInsertFailed},
		},
	}
	text := failureText(s)
	require.Contains(t, text, "Добавлено: egg")
	require.Contains(t, text, "Не удалось записать: basil, shrimp")

	s.Err = &entity.SessionError{Kind: entity.KindQueryFailed, Label: "rice"}
	require.Contains(t, failureText(s), "(rice)")

	s.Err = &entity.SessionError{Kind: entity.KindNetwork}
	require.Contains(t, failureText(s), "недоступен")

	s.Err = nil
	require.Equal(t, msgInternalError, failureText(s))
}

func TestDoneAndInventoryText(t *testing.T) {
	require.Contains(t, doneText(entity.ScanSession{}), "Новых продуктов не добавлено")
	require.Equal(t, "✅ Добавлено в инвентарь: 1\n• egg",
		doneText(entity.ScanSession{Result: &entity.CommitResult{Succeeded: entity.LabelSet{"egg"}}}))

	require.Equal(t, msgInventoryEmpty, inventoryText(nil))
	require.Equal(t, "📦 В инвентаре: 2\n• egg\n• rice", inventoryText([]entity.IngredientRecord{
		{ID: "1", Name: "egg"}, {ID: "2", Name: "rice"},
	}))
}
