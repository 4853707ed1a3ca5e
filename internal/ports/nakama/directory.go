package nakama

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"survivor/internal/domain"
	"survivor/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// channelStream is the stream behind a Nakama channel id such as "2...lobby".
type channelStream struct {
	mode       uint8
	subject    string
	subcontext string
	label      string
}

func parseChannelID(channelID string) (channelStream, error) {
	parts := strings.SplitN(channelID, ".", 4)
	if len(parts) != 4 {
		return channelStream{}, fmt.Errorf("invalid channel id %q", channelID)
	}
	mode, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil {
		return channelStream{}, fmt.Errorf("invalid channel id %q: %w", channelID, err)
	}
	return channelStream{mode: uint8(mode), subject: parts[1], subcontext: parts[2], label: parts[3]}, nil
}

// NakamaRoomDirectory implements ports.RoomDirectory from channel stream presences.
type NakamaRoomDirectory struct {
	nk runtime.NakamaModule
}

func NewNakamaRoomDirectory(nk runtime.NakamaModule) *NakamaRoomDirectory {
	return &NakamaRoomDirectory{nk: nk}
}

// Participates reports whether a user whose normalized username is userID
// is present in the channel roomID.
func (d *NakamaRoomDirectory) Participates(ctx context.Context, roomID, userID string) (bool, error) {
	stream, err := parseChannelID(roomID)
	if err != nil {
		return false, err
	}
	presences, err := d.nk.StreamUserList(stream.mode, stream.subject, stream.subcontext, stream.label, true, true)
	if err != nil {
		return false, fmt.Errorf("failed to list users of %s: %w", roomID, err)
	}
	for _, p := range presences {
		if domain.ToID(p.GetUsername()) == userID {
			return true, nil
		}
	}
	return false, nil
}

var _ ports.RoomDirectory = (*NakamaRoomDirectory)(nil)
