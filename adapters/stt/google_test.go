package stt_test

import (
	"github.com/pyronotes/server/adapters/stt"
	"github.com/pyronotes/server/domain/repositories"
)

var _ repositories.SpeechToText = &stt.GoogleSpeechToText{}
