package chat

import (
	"context"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"lovelink/backend/internal/apperr"
	"lovelink/backend/internal/cursor"
	"lovelink/backend/internal/models"
	"lovelink/backend/internal/storage"
)

// RoomService orchestrates room creation, reactivation, listing and
// leaving over the participant, block and message stores.
type RoomService struct {
	store storage.Storage
	log   *zap.Logger
}

func NewRoomService(store storage.Storage, log *zap.Logger) *RoomService {
	return &RoomService{store: store, log: log}
}

// RoomResult is the outcome of CreateRoom. Created is false when an
// existing room was reused or reactivated.
type RoomResult struct {
	Room    *models.ChatRoom `json:"room"`
	Peer    PeerProfile      `json:"peer"`
	Created bool             `json:"created"`
}

// PeerProfile is the peer-facing slice of a user profile used in room
// payloads.
type PeerProfile struct {
	UserID   uint   `json:"userId"`
	Nickname string `json:"nickname"`
	AreaName string `json:"areaName,omitempty"`
}

// RoomDetail is the response of GetRoomDetail.
type RoomDetail struct {
	Room     *models.ChatRoom `json:"room"`
	Peer     PeerProfile      `json:"peer"`
	JoinedAt time.Time        `json:"joinedAt"`
}

// RoomSummary is one row of the paginated room list.
type RoomSummary struct {
	RoomID      uint         `json:"roomId"`
	Peer        PeerProfile  `json:"peer"`
	UnreadCount int64        `json:"unreadCount"`
	LastMessage *LastMessage `json:"lastMessage,omitempty"`
	SortAt      time.Time    `json:"sortAt"`
}

// LastMessage is the floor-scoped preview of a room's newest message.
type LastMessage struct {
	MessageID uint      `json:"messageId"`
	Type      string    `json:"type"`
	Text      string    `json:"text,omitempty"`
	SentAt    time.Time `json:"sentAt"`
}

// RoomPage is a cursor-paginated room listing.
type RoomPage struct {
	Rooms      []RoomSummary `json:"rooms"`
	NextCursor string        `json:"nextCursor,omitempty"`
}

// CreateRoom resolves a conversation between the caller and a target in
// three tiers: reuse an ACTIVE room, reactivate a past one, or create a new
// one. History survives re-matches because rooms are reactivated, never
// recreated.
func (s *RoomService) CreateRoom(ctx context.Context, meID, targetID uint) (*RoomResult, error) {
	if targetID == 0 || targetID == meID {
		return nil, apperr.New(apperr.ValidationInvalidFormat, "invalid target user")
	}

	blocked, err := s.store.IsBlocked(ctx, meID, targetID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, apperr.New(apperr.ChatMessageBlocked, "messaging is blocked between these users")
	}

	target, err := s.store.GetActiveUser(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target == nil || !target.IsAddressable() {
		return nil, apperr.New(apperr.ChatRoomAccessFailed, "chat partner is unavailable")
	}
	peer := PeerProfile{UserID: target.ID, Nickname: target.Nickname, AreaName: target.AreaName}

	existing, err := s.store.FindLatestRoomBetween(ctx, meID, targetID)
	if err != nil {
		return nil, err
	}
	now := time.Now()

	switch {
	case existing != nil && existing.Status == models.RoomStatusActive:
		return &RoomResult{Room: existing, Peer: peer, Created: false}, nil

	case existing != nil:
		if err := s.store.ReactivateRoom(ctx, existing.ID, []uint{meID, targetID}, now); err != nil {
			return nil, err
		}
		room, err := s.store.GetRoomByID(ctx, existing.ID)
		if err != nil {
			return nil, err
		}
		s.log.Info("chat room reactivated", zap.Uint("roomId", existing.ID))
		return &RoomResult{Room: room, Peer: peer, Created: false}, nil

	default:
		room, err := s.store.CreateRoomWithParticipants(ctx, meID, targetID, now)
		if err != nil {
			return nil, err
		}
		// A concurrent create for the same pair resolves to one room; the
		// loser gets the winner's room back, with its original StartedAt.
		created := room.StartedAt.Equal(now)
		if created {
			s.log.Info("chat room created", zap.Uint("roomId", room.ID))
		}
		return &RoomResult{Room: room, Peer: peer, Created: created}, nil
	}
}

// GetRoomDetail returns the room, the peer profile and the caller's current
// join timestamp. Non-participants get an access failure, not a not-found,
// so room existence is not leaked.
func (s *RoomService) GetRoomDetail(ctx context.Context, meID, roomID uint) (*RoomDetail, error) {
	ok, err := s.store.IsParticipant(ctx, meID, roomID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.New(apperr.ChatRoomAccessFailed, "not a participant of this chat room")
	}

	room, err := s.store.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, apperr.New(apperr.ChatRoomAccessFailed, "not a participant of this chat room")
	}

	joinedAt, err := s.store.JoinedAt(ctx, meID, roomID)
	if err != nil {
		return nil, err
	}

	peerID, found, err := s.store.FindPeer(ctx, roomID, meID)
	if err != nil {
		return nil, err
	}
	detail := &RoomDetail{Room: room, JoinedAt: joinedAt}
	if found {
		users, err := s.store.GetUsersByIDs(ctx, []uint{peerID})
		if err != nil {
			return nil, err
		}
		if peer, ok := users[peerID]; ok {
			detail.Peer = PeerProfile{UserID: peer.ID, Nickname: peer.Nickname, AreaName: peer.AreaName}
		}
	}
	return detail, nil
}

// AuthorizeJoin validates a socket room.join: a positive room id and
// current participation. Returns the room id on success.
func (s *RoomService) AuthorizeJoin(ctx context.Context, meID uint, chatRoomID int64) (uint, error) {
	if chatRoomID <= 0 {
		return 0, apperr.New(apperr.ValidationInvalidFormat, "chatRoomId must be a positive integer")
	}
	roomID := uint(chatRoomID)
	ok, err := s.store.IsParticipant(ctx, meID, roomID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, apperr.New(apperr.ChatRoomAccessFailed, "not a participant of this chat room")
	}
	return roomID, nil
}

// LeaveRoom ends the caller's membership (and the room, rooms being
// two-party).
func (s *RoomService) LeaveRoom(ctx context.Context, meID, roomID uint) error {
	ok, err := s.store.IsParticipant(ctx, meID, roomID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.New(apperr.ChatRoomAccessFailed, "not a participant of this chat room")
	}
	return s.store.LeaveRoom(ctx, roomID, meID, time.Now())
}

type roomSortRow struct {
	roomID   uint
	peerID   uint
	joinedAt time.Time
	sortAt   time.Time
}

// ListRooms pages the caller's rooms by sort key max(joinedAt,
// lastMessageSentAt), descending, room id descending as tie-break. Fetching
// is two-phase: the sort/filter pass touches only participant rows and a
// batched last-sent aggregate; profiles, unread counts and previews are
// resolved for the returned page only, bounding per-request lookups to the
// page size.
func (s *RoomService) ListRooms(ctx context.Context, meID uint, cursorToken string, pageSize int) (*RoomPage, error) {
	if pageSize < 1 {
		return nil, apperr.New(apperr.ValidationInvalidFormat, "invalid page size")
	}

	var cursorSortAt *time.Time
	var cursorRoomID uint64
	if cursorToken != "" {
		payload, err := cursor.Decode(cursorToken)
		if err != nil {
			return nil, err
		}
		at, err := time.Parse(time.RFC3339Nano, payload.SortAt)
		if err != nil {
			return nil, apperr.New(apperr.ValidationInvalidFormat, "invalid cursor")
		}
		cursorRoomID, err = strconv.ParseUint(payload.RoomID, 10, 64)
		if err != nil {
			return nil, apperr.New(apperr.ValidationInvalidFormat, "invalid cursor")
		}
		cursorSortAt = &at
	}

	roomIDs, err := s.store.MyRoomIDs(ctx, meID)
	if err != nil {
		return nil, err
	}
	if len(roomIDs) == 0 {
		return &RoomPage{Rooms: []RoomSummary{}}, nil
	}

	participants, err := s.store.ParticipantsByRooms(ctx, roomIDs)
	if err != nil {
		return nil, err
	}
	lastSent, err := s.store.LastSentAtByRoom(ctx, roomIDs)
	if err != nil {
		return nil, err
	}

	rows := make(map[uint]*roomSortRow, len(roomIDs))
	for _, p := range participants {
		row, ok := rows[p.RoomID]
		if !ok {
			row = &roomSortRow{roomID: p.RoomID}
			rows[p.RoomID] = row
		}
		if p.UserID == meID {
			row.joinedAt = p.JoinedAt
		} else {
			row.peerID = p.UserID
		}
	}

	sorted := make([]*roomSortRow, 0, len(rows))
	for _, row := range rows {
		row.sortAt = row.joinedAt
		if at, ok := lastSent[row.roomID]; ok && at.After(row.sortAt) {
			row.sortAt = at
		}
		if cursorSortAt != nil {
			after := row.sortAt.After(*cursorSortAt) ||
				(row.sortAt.Equal(*cursorSortAt) && uint64(row.roomID) >= cursorRoomID)
			if after {
				continue
			}
		}
		sorted = append(sorted, row)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].sortAt.Equal(sorted[j].sortAt) {
			return sorted[i].sortAt.After(sorted[j].sortAt)
		}
		return sorted[i].roomID > sorted[j].roomID
	})

	hasNext := len(sorted) > pageSize
	if hasNext {
		sorted = sorted[:pageSize]
	}

	// Phase two: resolve peer profiles and aggregates for the page only.
	page := &RoomPage{Rooms: make([]RoomSummary, 0, len(sorted))}
	pageRoomIDs := make([]uint, 0, len(sorted))
	peerIDs := make([]uint, 0, len(sorted))
	for _, row := range sorted {
		pageRoomIDs = append(pageRoomIDs, row.roomID)
		if row.peerID != 0 {
			peerIDs = append(peerIDs, row.peerID)
		}
	}
	peers, err := s.store.GetUsersByIDs(ctx, peerIDs)
	if err != nil {
		return nil, err
	}
	unread, err := s.store.UnreadCountByRoom(ctx, meID, pageRoomIDs)
	if err != nil {
		return nil, err
	}

	for _, row := range sorted {
		summary := RoomSummary{
			RoomID:      row.roomID,
			UnreadCount: unread[row.roomID],
			SortAt:      row.sortAt,
		}
		if peer, ok := peers[row.peerID]; ok {
			summary.Peer = PeerProfile{UserID: peer.ID, Nickname: peer.Nickname, AreaName: peer.AreaName}
		}
		last, err := s.store.LastMessageInRoom(ctx, row.roomID, row.joinedAt)
		if err != nil {
			return nil, err
		}
		if last != nil && last.Media != nil {
			summary.LastMessage = &LastMessage{
				MessageID: last.ID,
				Type:      last.Media.Type,
				Text:      last.Media.Text,
				SentAt:    last.SentAt,
			}
		}
		page.Rooms = append(page.Rooms, summary)
	}

	if hasNext && len(sorted) > 0 {
		tail := sorted[len(sorted)-1]
		page.NextCursor = cursor.Encode(cursor.Payload{
			SortAt: tail.sortAt.Format(time.RFC3339Nano),
			RoomID: strconv.FormatUint(uint64(tail.roomID), 10),
		})
	}
	return page, nil
}
