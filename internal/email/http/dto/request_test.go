package dto

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func validMessage() MessageRequest {
	return MessageRequest{
		TopicID: "spring_sale-2026",
		Emails:  []string{"a@example.com", " b@example.org "},
		Subject: "Hello",
		Content: "<p>Hi</p>",
	}
}

func TestCreateMessagesRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *CreateMessagesRequest)
		wantErr string
	}{
		{name: "valid", mutate: func(r *CreateMessagesRequest) {}},
		{
			name:    "no messages",
			mutate:  func(r *CreateMessagesRequest) { r.Messages = nil },
			wantErr: "messages",
		},
		{
			name: "too many messages",
			mutate: func(r *CreateMessagesRequest) {
				r.Messages = make([]MessageRequest, MaxMessagesPerRequest+1)
				for i := range r.Messages {
					r.Messages[i] = validMessage()
				}
			},
			wantErr: "messages",
		},
		{
			name:    "invalid topic id",
			mutate:  func(r *CreateMessagesRequest) { r.Messages[0].TopicID = "has spaces" },
			wantErr: "topic_id",
		},
		{
			name:    "topic id too long",
			mutate:  func(r *CreateMessagesRequest) { r.Messages[0].TopicID = strings.Repeat("a", 51) },
			wantErr: "topic_id",
		},
		{
			name:    "no recipients",
			mutate:  func(r *CreateMessagesRequest) { r.Messages[0].Emails = []string{} },
			wantErr: "emails",
		},
		{
			name:    "invalid recipient",
			mutate:  func(r *CreateMessagesRequest) { r.Messages[0].Emails = []string{"a@example.com", "nope"} },
			wantErr: "emails",
		},
		{
			name:    "empty subject",
			mutate:  func(r *CreateMessagesRequest) { r.Messages[0].Subject = "" },
			wantErr: "subject",
		},
		{
			name:    "subject too long",
			mutate:  func(r *CreateMessagesRequest) { r.Messages[0].Subject = strings.Repeat("s", MaxSubjectLength+1) },
			wantErr: "subject",
		},
		{
			name:    "content too long",
			mutate:  func(r *CreateMessagesRequest) { r.Messages[0].Content = strings.Repeat("c", MaxContentLength+1) },
			wantErr: "content",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &CreateMessagesRequest{Messages: []MessageRequest{validMessage()}}
			tt.mutate(r)

			err := r.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCreateMessagesRequest_ToDomain(t *testing.T) {
	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)

	t.Run("converts and trims recipients", func(t *testing.T) {
		m := validMessage()
		m.ScheduledAt = ptr("2026-05-01 09:00:00")
		r := &CreateMessagesRequest{Messages: []MessageRequest{m, {Emails: []string{"c@example.com"}, Subject: "s", Content: "c"}}}

		messages, err := r.ToDomain(seoul)

		require.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Equal(t, "spring_sale-2026", messages[0].TopicID)
		assert.Equal(t, []string{"a@example.com", "b@example.org"}, messages[0].Emails)
		assert.Equal(t, "<p>Hi</p>", messages[0].Body)
		require.NotNil(t, messages[0].ScheduledAt)
		assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), *messages[0].ScheduledAt)
		assert.Nil(t, messages[1].ScheduledAt)
	})

	t.Run("blank scheduled_at is unscheduled", func(t *testing.T) {
		m := validMessage()
		m.ScheduledAt = ptr("  ")
		r := &CreateMessagesRequest{Messages: []MessageRequest{m}}

		messages, err := r.ToDomain(time.UTC)

		require.NoError(t, err)
		assert.Nil(t, messages[0].ScheduledAt)
	})

	t.Run("invalid scheduled_at", func(t *testing.T) {
		m := validMessage()
		m.ScheduledAt = ptr("tomorrow")
		r := &CreateMessagesRequest{Messages: []MessageRequest{validMessage(), m}}

		_, err := r.ToDomain(time.UTC)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "messages[1].scheduled_at")
	})
}

func TestParseScheduledAt(t *testing.T) {
	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)
	want := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	for _, value := range []string{
		"2026-05-01T00:00:00Z",
		"2026-05-01T09:00:00+09:00",
		"2026-05-01 09:00:00+09:00",
		"2026-05-01 09:00:00.000+09:00",
		"2026-05-01 09:00:00",
		"2026-05-01T09:00:00",
		"2026-05-01 09:00:00.0",
	} {
		got, err := ParseScheduledAt(value, seoul)
		require.NoError(t, err, value)
		assert.Equal(t, want, got, value)
		assert.Equal(t, time.UTC, got.Location(), value)
	}

	_, err = ParseScheduledAt("05/01/2026", seoul)
	assert.Error(t, err)
}
