package main

import (
	"flag"
	"fmt"
	"io/ioutil"

	"github.com/bitmark-inc/logger"
	"github.com/boltdb/bolt"
	"github.com/gin-gonic/gin"
	"github.com/hashicorp/hcl"

	"github.com/cool-develope/Algorand-NFTMarketplace/marketplace"
)

var (
	cfg    *config
	db     *bolt.DB
	market *marketplace.Marketplace
)

type config struct {
	Chain        string `hcl:"chain"`
	Port         int    `hcl:"port"`
	DataDir      string `hcl:"datadir"`
	AlgodAddress string `hcl:"algod_address"`
	AlgodToken   string `hcl:"algod_token"`
}

func init() {
	var confpath string
	flag.StringVar(&confpath, "conf", "", "Specify configuration file")
	flag.Parse()

	cfg = readConfig(confpath)

	initLogger()

	db = openDB(fmt.Sprintf("%s/nft-marketplace.db", cfg.DataDir))

	gateway, err := marketplace.NewAlgodGateway(cfg.AlgodAddress, cfg.AlgodToken)
	if err != nil {
		panic(fmt.Sprintf("unable to set up the algod client: %v", err))
	}

	market = marketplace.New(gateway, credentials{})
}

func readConfig(confpath string) *config {
	var cfg config

	dat, err := ioutil.ReadFile(confpath)
	if err != nil {
		panic(fmt.Sprintf("unable to read the configuration: %v", err))
	}

	if err = hcl.Unmarshal(dat, &cfg); nil != err {
		panic(fmt.Sprintf("unable to parse the configuration: %v", err))
	}

	return &cfg
}

func initLogger() {
	err := logger.Initialise(logger.Configuration{
		Directory: cfg.DataDir,
		File:      "nft-marketplace.log",
		Size:      1048576,
		Count:     10,
		Console:   true,
		Levels: map[string]string{
			logger.DefaultTag: "info",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("logger initialization failed: %v", err))
	}
}

func main() {
	r := gin.Default()
	r.POST("/account", handleAccountCreation())
	r.POST("/tokens", handleRegister())
	r.GET("/tokens/:appId", handleTokenStatus())
	r.POST("/tokens/:appId/sell", handleSell())
	r.POST("/tokens/:appId/buy", handleBuy())
	r.Run(fmt.Sprintf(":%d", cfg.Port))
}
