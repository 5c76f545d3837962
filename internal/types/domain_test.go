package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationKind_Recognized(t *testing.T) {
	assert.True(t, KindContributionStarting.Recognized())
	assert.True(t, KindReactionStarting.Recognized())
	assert.False(t, NotificationKind("photo-event:contribution:ending").Recognized())
	assert.False(t, NotificationKind("").Recognized())
}

// The pending queue's wire key must stay "notificationType": it is what older
// rows in the JSONB column carry.
func TestPendingPushNotification_WireKey(t *testing.T) {
	b, err := json.Marshal(PendingPushNotification{Kind: KindReactionStarting})
	require.NoError(t, err)
	assert.JSONEq(t, `{"notificationType":"photo-event:reaction:starting"}`, string(b))

	var decoded PendingPushNotification
	require.NoError(t, json.Unmarshal([]byte(`{"notificationType":"photo-event:contribution:starting"}`), &decoded))
	assert.Equal(t, KindContributionStarting, decoded.Kind)
}
