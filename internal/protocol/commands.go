package protocol

// Lobby protocol command codes.
//
// The client speaks the stock multiplayer menu protocol: requests carry
// the sender id in id1 (0 before login), responses and notifications are
// produced by the server under a different code, pass-through game
// traffic keeps its code and is only re-routed. Values are fixed by the
// game client.
const (
	// game data exchange, forwarded without inspection
	CmdVarArray         = 0x032 // array of variables
	CmdGameData         = 0x4b0 // binary map data stream
	CmdDataReceived     = 0x456
	CmdTransmissionEnd  = 0x457
	CmdHostTransmission = 0x460
	CmdAllPlayersLoaded = 0x461

	// in-room status reports, forwarded without inspection
	CmdRoomStatusToHost = 0x064
	CmdRoomStatusUpdate = 0x065
	CmdRoomStatusEcho   = 0x066

	// room property forwards
	CmdForwardRoomProps   = 0x0c8
	CmdForwardRoomPropsTo = 0x0c9

	// information exchange
	CmdPlayerInfo    = 0x192
	RspPlayerInfo    = 0x193
	CmdPlayerStatus  = 0x1ab
	NtfPlayerStatus  = 0x1ac
	CmdVersionCheck  = 0x1ad
	RspVersionCheck  = 0x1ae
	CmdSetProperties = 0x1b3
	CmdUnknown1B7    = 0x1b7 // sent by the client, purpose unknown, ignored

	// messaging
	CmdRoomMessage  = 0x194
	NtfRoomMessage  = 0x195
	CmdLobbyMessage = 0x196
	NtfLobbyMessage = 0x197

	// login sequence
	CmdRegisterForm = 0x198
	CmdLoginForm    = 0x19a
	RspLoginRoster  = 0x19b
	CmdEmailForm    = 0x1a8
	RspEmailForm    = 0x1a9
	NtfPlayerJoined = 0x1a6
	NtfPlayerLeft   = 0x1a7

	// room lifecycle
	CmdCreateRoom   = 0x19c
	NtfRoomCreated  = 0x19d
	CmdJoinRoom     = 0x19e
	NtfRoomJoined   = 0x19f
	CmdLeaveRoom    = 0x1a0
	NtfRoomLeft     = 0x1a1
	CmdStartGame    = 0x1a2
	NtfGameStarted  = 0x1a3
	NtfRoomUpdated  = 0x1a5
	CmdRoomUpdate   = 0x1aa
	CmdLeaveGame    = 0x1af
	CmdKickPlayer   = 0x1b5
	NtfPlayerKicked = 0x1b6
	CmdRoomSettings = 0x1bb
	NtfRoomSettings = 0x1bc

	// host migration
	NtfHostSnapshot = 0x1bd // full game state dictionary for the new host
	NtfHostChanged  = 0x1be // per-member pointer to the new host
)
