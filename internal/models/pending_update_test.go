package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		{PendingStatusPending, PendingStatusApproved, true},
		{PendingStatusPending, PendingStatusRejected, true},
		{PendingStatusPending, PendingStatusSentBackForReview, true},

		// Decided updates are never re-reviewed
		{PendingStatusApproved, PendingStatusRejected, false},
		{PendingStatusRejected, PendingStatusApproved, false},
		{PendingStatusSentBackForReview, PendingStatusPending, false},
		{PendingStatusSentBackForReview, PendingStatusApproved, false},
		{PendingStatusPending, PendingStatusPending, false},
		{"nonexistent", PendingStatusApproved, false},
		{PendingStatusPending, "nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsValidTransition(tt.from, tt.to))
		})
	}
}

func TestStatusForDecision(t *testing.T) {
	tests := map[string]string{
		DecisionApprove:  PendingStatusApproved,
		DecisionReject:   PendingStatusRejected,
		DecisionSendBack: PendingStatusSentBackForReview,
	}
	for decision, want := range tests {
		got, ok := StatusForDecision(decision)
		assert.True(t, ok, decision)
		assert.Equal(t, want, got)
	}

	_, ok := StatusForDecision("sent_back")
	assert.False(t, ok)
}

func TestNotificationTypeForStatus(t *testing.T) {
	typ, ok := NotificationTypeForStatus(PendingStatusSentBackForReview)
	assert.True(t, ok)
	assert.Equal(t, NotificationUpdateSentBack, typ)

	_, ok = NotificationTypeForStatus(PendingStatusPending)
	assert.False(t, ok)
}

func TestChangedFields(t *testing.T) {
	pu := PendingUpdate{
		OldValues: FieldMap{"a": "1", "b": "2", "c": nil},
		NewValues: FieldMap{"a": "1", "b": "3", "c": nil},
	}

	changes := pu.ChangedFields()
	assert.Equal(t, []FieldChange{{Field: "b", OldValue: "2", NewValue: "3"}}, changes)
	assert.Equal(t, FieldMap{"b": "3"}, NewValuesOf(changes))
	assert.Equal(t, FieldMap{"b": "2"}, OldValuesOf(changes))
}

func TestMismatchedKey(t *testing.T) {
	key, ok := MismatchedKey(FieldMap{"a": 1, "b": 2}, FieldMap{"a": 1})
	assert.True(t, ok)
	assert.Equal(t, "b", key)

	key, ok = MismatchedKey(FieldMap{"a": 1}, FieldMap{"a": 2, "z": 3})
	assert.True(t, ok)
	assert.Equal(t, "z", key)

	_, ok = MismatchedKey(FieldMap{"a": 1}, FieldMap{"a": 2})
	assert.False(t, ok)
}

func TestValuesEqual(t *testing.T) {
	assert.True(t, ValuesEqual(nil, nil))
	assert.True(t, ValuesEqual("150.00", "150.00"))
	assert.False(t, ValuesEqual(nil, ""))
	assert.False(t, ValuesEqual("100.00", "150.00"))
}
