package editor

import (
	"github.com/starford/blocknote/internal/models"
	"github.com/starford/blocknote/internal/storage"
)

func storageText(content string, pos int) storage.BlockInput {
	return storage.BlockInput{Type: models.BlockText, Content: content, Position: pos}
}
