package main

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cool-develope/Algorand-NFTMarketplace/marketplace"
)

type sellRequest struct {
	Seller string `json:"seller"`
	Price  uint64 `json:"price"`
}

type buyRequest struct {
	Buyer string `json:"buyer"`
}

func handleAccountCreation() gin.HandlerFunc {
	return func(c *gin.Context) {
		account, err := createAccount()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"account": account})
	}
}

func handleRegister() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(400, gin.H{"error": "invalid request body"})
			return
		}

		info := req.TokenInfo
		info.MetadataHash = computeMetadataHash(info)

		appID, err := market.Register(c.Request.Context(), req.Creator, info)
		if err != nil {
			checkErr(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"app_id": appID})
	}
}

func handleSell() gin.HandlerFunc {
	return func(c *gin.Context) {
		appID, err := parseAppId(c)
		if err != nil {
			c.JSON(400, gin.H{"error": "invalid app id"})
			return
		}

		var req sellRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(400, gin.H{"error": "invalid request body"})
			return
		}

		if req.Price == 0 {
			req.Price = marketplace.DefaultSellPrice
		}

		if err := market.ListForSale(c.Request.Context(), req.Seller, appID, req.Price); err != nil {
			checkErr(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"app_id": appID, "price": req.Price})
	}
}

func handleBuy() gin.HandlerFunc {
	return func(c *gin.Context) {
		appID, err := parseAppId(c)
		if err != nil {
			c.JSON(400, gin.H{"error": "invalid app id"})
			return
		}

		var req buyRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(400, gin.H{"error": "invalid request body"})
			return
		}

		txid, err := market.Buy(c.Request.Context(), req.Buyer, appID)
		if err != nil {
			checkErr(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"app_id": appID, "txid": txid})
	}
}

func handleTokenStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		appID, err := parseAppId(c)
		if err != nil {
			c.JSON(400, gin.H{"error": "invalid app id"})
			return
		}

		status, err := market.Token(appID)
		if err != nil {
			checkErr(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"app_id":   status.AppID,
			"asset_id": status.AssetID,
			"owner":    status.Owner.String(),
			"escrow":   status.Escrow.String(),
			"state":    status.State.String(),
			"offered":  status.Offered,
			"price":    status.SellPrice,
		})
	}
}

func parseAppId(c *gin.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("appId"), 10, 64)
}
