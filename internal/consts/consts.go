package consts

const (
	SSEDataPrefix = "data: "

	// BoardChannelPrefix and BoardChannelSuffix surround the board ID in the
	// Redis pub/sub channel carrying push frames.
	BoardChannelPrefix = "board:"
	BoardChannelSuffix = ":events"

	TasksKeyPrefix = "tasks:"
	BoardKeyPrefix = "boards:"

	JoinBoard  = "joinBoard"
	LeaveBoard = "leaveBoard"
)

// BoardChannel returns the pub/sub channel name for boardID.
func BoardChannel(boardID string) string {
	return BoardChannelPrefix + boardID + BoardChannelSuffix
}
