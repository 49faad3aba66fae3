package content

import (
	"github.com/futig/kbchat-backend/internal/corpus"
)

type CorpusBinding interface {
	Current() *corpus.Snapshot
}
