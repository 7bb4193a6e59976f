package network

// Message ids. 1xx are lobby/inbound control, 2xx inbound game actions,
// 3xx outbound broadcasts, 4xx outbound private prompts and their
// auto-resolution counterparts.
const (
	MsgTypeHeartbeat = 1

	MsgTypeJoinGame       = 101
	MsgTypeStartGame      = 102
	MsgTypeCreateGame     = 103
	MsgTypeJoinSpectator  = 104
	MsgTypeLeaveSpectator = 105

	MsgTypeWerewolfAction  = 201
	MsgTypeSeerAction      = 202
	MsgTypeDoctorAction    = 203
	MsgTypeBodyguardAction = 204
	MsgTypeWitchAction     = 205
	MsgTypeVoteAction      = 206
	MsgTypeHunterAction    = 207
	MsgTypeSendMessage     = 210

	MsgTypeRoleAssigned       = 301
	MsgTypeWerewolfTeammates  = 302
	MsgTypeGameStarted        = 303
	MsgTypePhaseChange        = 304
	MsgTypeTimerUpdate        = 305
	MsgTypeDiscussionStarted  = 306
	MsgTypeVotingStarted      = 307
	MsgTypeVoteRegistered     = 308
	MsgTypePlayerEliminated   = 309
	MsgTypeNoLynch            = 310
	MsgTypeGameEnded          = 311
	MsgTypeUpdatePlayerList   = 312
	MsgTypeGameState          = 313
	MsgTypeChatHistory        = 314
	MsgTypeChatMessage        = 315
	MsgTypeError              = 316
	MsgTypeSeerResult         = 317
	MsgTypePlayerDisconnected = 318
	MsgTypeGameCreated        = 319
	MsgTypePlayerJoined       = 320
	MsgTypeJoinedSpectator    = 321
	MsgTypeLeftSpectator      = 322

	MsgTypeWerewolfTurn  = 401
	MsgTypeBodyguardTurn = 402
	MsgTypeDoctorTurn    = 403
	MsgTypeWitchTurn     = 404
	MsgTypeSeerTurn      = 405
	MsgTypeHunterTurn    = 406

	MsgTypeAutoWerewolfAction  = 411
	MsgTypeAutoBodyguardAction = 412
	MsgTypeAutoDoctorAction    = 413
	MsgTypeAutoWitchAction     = 414
	MsgTypeAutoSeerAction      = 415
	MsgTypeAutoHunterAction    = 416
)
