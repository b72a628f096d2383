package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"drillwatch.org/drillwatch/core"
	"drillwatch.org/drillwatch/infrastructure/filesystem"
	"drillwatch.org/drillwatch/web/common"
	"drillwatch.org/drillwatch/web/model"
)

// MediaBlobHandler receives the blob for an already-registered media
// record. Re-uploads overwrite under the same key, so a device retrying
// after a half-finished transfer never leaves a second copy.
func MediaBlobHandler(dm *core.DatabaseManager, blobs filesystem.BlobStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		var record model.MediaRecord
		err := dm.Exec(c.Request.Context(), func(db *gorm.DB) error {
			return db.Where("id = ?", id).Take(&record).Error
		})
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound,
				common.NewErrorResponse("unknown_media", "no media record with that id"))
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError,
				common.NewErrorResponse("internal", err.Error()))
			return
		}

		file, header, err := c.Request.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest,
				common.NewErrorResponse("invalid_body", "multipart field 'file' is required"))
			return
		}
		defer file.Close()

		key := fmt.Sprintf("media/%s%s", record.ID, filepath.Ext(header.Filename))
		ref, err := blobs.Save(c.Request.Context(), key, file)
		if err != nil {
			c.JSON(http.StatusInternalServerError,
				common.NewErrorResponse("internal", err.Error()))
			return
		}

		if err := dm.Exec(c.Request.Context(), func(db *gorm.DB) error {
			return db.Model(&model.MediaRecord{}).Where("id = ?", record.ID).
				Update("blob_key", ref).Error
		}); err != nil {
			c.JSON(http.StatusInternalServerError,
				common.NewErrorResponse("internal", err.Error()))
			return
		}

		c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{"blobKey": ref}))
	}
}
