package festival

import (
	"context"

	"github.com/manifest-festivals/manifest/internal/crud"
	"github.com/manifest-festivals/manifest/internal/models"

	"gorm.io/gorm"
)

func assetResource() crud.Resource[models.Asset, models.AssetResponse, models.AssetSearch, models.AssetUpsertRequest, models.AssetUpsertRequest] {
	validate := func(tx *gorm.DB, req models.AssetUpsertRequest) error {
		return crud.MustExist(tx, &models.Festival{}, req.FestivalID, "The specified festival does not exist.")
	}

	return crud.Resource[models.Asset, models.AssetResponse, models.AssetSearch, models.AssetUpsertRequest, models.AssetUpsertRequest]{
		Name: "asset",
		Filter: func(q *gorm.DB, search models.AssetSearch) *gorm.DB {
			if search.FestivalID != nil {
				q = q.Where("festival_id = ?", *search.FestivalID)
			}
			q = crud.Contains(q, "file_name", search.FileName)
			return crud.Contains(q, "content_type", search.ContentType)
		},
		Preload: func(q *gorm.DB, _ *models.AssetSearch) *gorm.DB {
			return q.Preload("Festival")
		},
		ToResponse: toAssetResponse,
		MapInsert:  mapAsset,
		MapUpdate:  mapAsset,
		BeforeInsert: func(ctx context.Context, tx *gorm.DB, e *models.Asset, req models.AssetUpsertRequest) error {
			return validate(tx, req)
		},
		BeforeUpdate: func(ctx context.Context, tx *gorm.DB, e *models.Asset, req models.AssetUpsertRequest) error {
			return validate(tx, req)
		},
	}
}

func mapAsset(req models.AssetUpsertRequest, e *models.Asset) {
	e.FileName = req.FileName
	e.ContentType = req.ContentType
	e.Base64Content = req.Base64Content
	e.FestivalID = req.FestivalID
}

func toAssetResponse(e *models.Asset) models.AssetResponse {
	resp := models.AssetResponse{
		ID:            e.ID,
		FileName:      e.FileName,
		ContentType:   e.ContentType,
		Base64Content: e.Base64Content,
		FestivalID:    e.FestivalID,
	}
	if e.Festival != nil {
		resp.FestivalTitle = e.Festival.Title
	}
	return resp
}
