package domain

import "errors"

var (
	// ErrNoQuestions is returned when a session would start with zero questions.
	ErrNoQuestions = errors.New("no questions available for session")
	// ErrSessionNotFound is returned when an operation targets an unknown session.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSubtopicNotFound indicates the question bank could not be loaded.
	ErrSubtopicNotFound = errors.New("subtopic not found")
	// ErrSessionFinished is returned when a mutating operation hits a finished session.
	ErrSessionFinished = errors.New("quiz session already finished")
	// ErrSkipExhausted is returned when skip is called with no skip budget left.
	ErrSkipExhausted = errors.New("no skips remaining")
	// ErrSkipDuringRecall is returned when skip is called while revisiting skipped questions.
	ErrSkipDuringRecall = errors.New("cannot skip during recall phase")
	// ErrUnknownOption indicates an answer label outside A-D.
	ErrUnknownOption = errors.New("unknown option label")
)
