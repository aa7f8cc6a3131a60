package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cool-develope/Algorand-NFTMarketplace/marketplace"
)

func checkErr(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var (
		invalid  marketplace.InvalidError
		auth     marketplace.AuthError
		notFound marketplace.NotFoundError
		conflict marketplace.ConflictError
		orphan   marketplace.OrphanError
	)

	switch {
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &auth):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &orphan):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	}
}
