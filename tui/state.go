package tui

type state int

const (
	loadingState state = iota
	playingState
	endedState
	errorState
)
