package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/coinharbor/deposit-monitor/internal/api"
	"github.com/coinharbor/deposit-monitor/internal/chain"
	"github.com/coinharbor/deposit-monitor/internal/repository"
	"github.com/coinharbor/deposit-monitor/internal/services"
)

func main() {
	var (
		MysqlEndpoint   string
		EthEndpoint     string
		BtcExplorer     string
		ListenAddr      string
		DefaultInterval time.Duration
	)

	flag.StringVar(&MysqlEndpoint, "mysql", "root:passwd@tcp(127.0.0.1:3306)/exchange?parseTime=true", "mysql endpoint")
	flag.StringVar(&EthEndpoint, "ethrpc", "https://mainnet.infura.io/v3/", "ethereum rpc endpoint")
	flag.StringVar(&BtcExplorer, "btcapi", "https://blockstream.info/api", "bitcoin explorer endpoint")
	flag.StringVar(&ListenAddr, "listen", ":8085", "admin api listen address")
	flag.DurationVar(&DefaultInterval, "interval", services.DefaultPollInterval, "default poll interval when a currency has no config row")
	flag.Parse()

	// explorer credentials come from the environment: BTC_EXPLORER_API_KEY
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.Warnf("unable to load .env: %s", err)
	}

	db, err := repository.Connect(MysqlEndpoint)
	if err != nil {
		logrus.Fatalf("unable to connect to mysql: %s", err)
	}
	defer db.Close()

	basectx, cancel := context.WithCancel(context.Background())
	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		for range stop {
			cancel()
		}
	}()

	ethrpc, err := ethclient.Dial(EthEndpoint)
	if err != nil {
		logrus.Fatalf("unable to connect to ethereum rpc: %s", err)
	}
	defer ethrpc.Close()

	store := repository.NewStore(db)
	checkers := map[repository.Currency]chain.Checker{
		repository.CurrencyBTC:  chain.NewBitcoinChecker(BtcExplorer, os.Getenv("BTC_EXPLORER_API_KEY")),
		repository.CurrencyETH:  chain.NewEthereumChecker(ethrpc),
		repository.CurrencyUSDT: chain.NewUsdtChecker(ethrpc),
	}
	monitor := services.NewMonitor(store, store, checkers, DefaultInterval)

	eg, egctx := errgroup.WithContext(basectx)

	// Deposit monitoring service
	eg.Go(func() error {
		if err := monitor.Start(egctx); err != nil {
			return err
		}
		<-egctx.Done()
		monitor.Stop()
		return nil
	})

	// Admin API
	eg.Go(func() error {
		server := &http.Server{Addr: ListenAddr, Handler: api.NewRouter(monitor)}

		go func() {
			<-egctx.Done()
			newctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
			defer cancel()
			if err := server.Shutdown(newctx); err != nil {
				logrus.Errorf("admin api shutdown: %s", err)
			}
		}()

		logrus.Infof("Admin API listening on %s", ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		logrus.Fatal(err)
	}
}
