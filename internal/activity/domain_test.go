package activity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSelectNewestFirst(t *testing.T) {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	logs := []Log{
		{ID: "1", UserID: "admin-1", BookID: "b1", Action: ActionAddBook, Timestamp: base},
		{ID: "2", UserID: "member-1", BookID: "b1", Action: ActionBorrow, Timestamp: base.Add(time.Hour)},
		{ID: "3", UserID: "member-1", BookID: "b1", Action: ActionReturn, Timestamp: base.Add(2 * time.Hour)},
		{ID: "4", UserID: "member-2", BookID: "b1", Action: ActionBorrow, Timestamp: base.Add(2 * time.Hour)},
	}

	tests := []struct {
		name string
		c    Criteria
		want []string
	}{
		{"all", Criteria{}, []string{"4", "3", "2", "1"}},
		{"by action", Criteria{Action: ActionBorrow}, []string{"4", "2"}},
		{"by user", Criteria{UserID: "member-1"}, []string{"3", "2"}},
		{"both", Criteria{Action: ActionReturn, UserID: "member-2"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := []string{}
			for _, l := range Select(logs, tt.c) {
				got = append(got, l.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "1", logs[0].ID, "select must not reorder the source slice")
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Log{ID: "1", Action: ActionEditBook}.Validate())
	assert.Error(t, Log{Action: ActionEditBook}.Validate())
	assert.Error(t, Log{ID: "1", Action: "rename"}.Validate())
}
