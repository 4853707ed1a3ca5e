package nakama

const (
	RpcCreateGame  = "create_game"
	RpcGameCommand = "game_command"
	RpcRollEvent   = "roll_event"
	RpcGameState   = "game_state"
	RpcHostStats   = "host_stats"
	RpcListGames   = "list_games"

	// RtChannelMessageSend is the realtime message every chat line arrives as.
	RtChannelMessageSend = "ChannelMessageSend"
)

// Host-activity storage, owned by the system user.
const (
	hostCollection  = "survivor_hosts"
	hostCountersKey = "counters"
	hostCurrentKey  = "current"
)

// Stream modes of Nakama chat channels.
const (
	streamModeRoom  uint8 = 2
	streamModeGroup uint8 = 3
	streamModeDM    uint8 = 4
)

// gRPC status codes used for RPC errors.
const (
	codeInvalidArgument    = 3
	codeNotFound           = 5
	codeFailedPrecondition = 9
	codeInternal           = 13
	codeUnauthenticated    = 16
)

// notificationCodeWhisper tags private game messages delivered as notifications.
const notificationCodeWhisper = 1001
