package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/blacktie/internal/models"
)

func TestNotifyNewOrderPostsToAdminChat(t *testing.T) {
	var got telegramMessage
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	svc := NewTelegramService("token", "-100").WithBaseURL(srv.URL)
	order := models.Order{
		OrderNumber:  "BT-2025-0007",
		FunctionType: models.FunctionBlackTie,
		WeddingDate:  day(2025, 8, 2),
		WeddingVenue: strPtr("Claridge's & Co"),
		TotalMembers: 5,
	}

	err := svc.NotifyNewOrder(context.Background(), NewOrderNotification(order, "Tom <Groom>", "Sam Tailor"))
	require.NoError(t, err)

	assert.Equal(t, "/bottoken/sendMessage", path)
	assert.Equal(t, "-100", got.ChatID)
	assert.Equal(t, "HTML", got.ParseMode)
	assert.Contains(t, got.Text, "BT-2025-0007")
	assert.Contains(t, got.Text, "Tom &lt;Groom&gt;")
	assert.Contains(t, got.Text, "black tie on Sat 2 Aug 2025")
	assert.Contains(t, got.Text, "Claridge&#39;s &amp; Co")
	assert.Contains(t, got.Text, "<b>Party:</b> 5")
}

func TestTelegramReportsNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	svc := NewTelegramService("token", "-100").WithBaseURL(srv.URL)
	assert.Error(t, svc.SendToAdmin(context.Background(), "hi"))
}

func TestTelegramUnconfiguredIsNoop(t *testing.T) {
	assert.NoError(t, NewTelegramService("", "-100").SendToAdmin(context.Background(), "hi"))
	assert.NoError(t, NewTelegramService("token", "").NotifyNewOrder(context.Background(), OrderNotification{}))
}

func TestTelegramEnabledNeedsTokenAndChat(t *testing.T) {
	assert.True(t, NewTelegramService("token", "-100").Enabled())
	assert.False(t, NewTelegramService("", "-100").Enabled())
	assert.False(t, NewTelegramService("token", "").Enabled())
}
