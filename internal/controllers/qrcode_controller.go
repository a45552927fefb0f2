package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const (
	defaultQRSize = 256
	minQRSize     = 64
	maxQRSize     = 1024
)

type QRCodeController struct {
	urls   URLManager
	logger *zap.Logger
}

func NewQRCodeController(urls URLManager, logger *zap.Logger) *QRCodeController {
	return &QRCodeController{urls: urls, logger: logger}
}

// GenerateQRCode handles GET /api/v1/qrcode/:shortCode - generates QR code for a short URL
func (qc *QRCodeController) GenerateQRCode(c *gin.Context) {
	size := defaultQRSize
	if sizeStr := c.Query("size"); sizeStr != "" {
		parsed, err := strconv.Atoi(sizeStr)
		if err != nil || parsed < minQRSize || parsed > maxQRSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": "size must be between 64 and 1024"})
			return
		}
		size = parsed
	}

	info, err := qc.urls.GetURLInfo(c.Request.Context(), c.Param("shortCode"))
	if err != nil {
		respondError(c, qc.logger, err)
		return
	}

	pngData, err := qrcode.Encode(info.ShortURL, qrcode.Medium, size)
	if err != nil {
		respondError(c, qc.logger, err)
		return
	}

	c.Header("Content-Disposition", "inline; filename=qrcode.png")
	c.Data(http.StatusOK, "image/png", pngData)
}
