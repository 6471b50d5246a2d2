package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoomCanJoin(t *testing.T) {
	tests := []struct {
		name   string
		room   Room
		userID int64
		want   bool
	}{
		{
			name:   "public room admits anyone",
			room:   Room{ID: 7, Type: RoomPublic, CreatedBy: 1},
			userID: 99,
			want:   true,
		},
		{
			name:   "private room admits member",
			room:   Room{ID: 8, Type: RoomPrivate, CreatedBy: 1, Members: []int64{2, 3}},
			userID: 3,
			want:   true,
		},
		{
			name:   "private room rejects non-member",
			room:   Room{ID: 8, Type: RoomPrivate, CreatedBy: 1, Members: []int64{2, 3}},
			userID: 4,
			want:   false,
		},
		{
			name:   "creator always admitted",
			room:   Room{ID: 9, Type: RoomPersonal, CreatedBy: 5},
			userID: 5,
			want:   true,
		},
		{
			name:   "personal room rejects everyone else",
			room:   Room{ID: 9, Type: RoomPersonal, CreatedBy: 5, Members: []int64{6}},
			userID: 6,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.room.CanJoin(tt.userID))
		})
	}
}
