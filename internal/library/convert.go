package library

import (
	"time"

	"github.com/lmartel/cadenza/internal/collection"
	"github.com/lmartel/cadenza/internal/remote"
)

func docFromCollection(c *collection.Collection) remote.PlaylistDoc {
	return remote.PlaylistDoc{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		CoverURL:    c.CoverURL,
		Tracks:      c.Tracks,
		IsSystem:    c.IsSystem,
		UpdatedAt:   time.Now().UTC(),
	}
}

func collectionFromDoc(doc remote.PlaylistDoc) *collection.Collection {
	return collection.Restore(doc.ID, doc.Name, doc.Description, doc.CoverURL, doc.Tracks, doc.IsSystem)
}
