package main

import (
	"flag"
	"go-binpack/pkg"
	"go.uber.org/zap"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	addrF := flag.String("addr", "localhost:3000", "addr to run server on")
	outDirF := flag.String("out-dir", "", "directory flushed artifacts are written to")
	devF := flag.Bool("dev", false, "use development logger")
	maxSizeF := flag.Uint64("max-size", pkg.DefaultMaxArtifactSize, "max size of one artifact in bytes")

	flag.Parse()

	var (
		logger *zap.Logger
		err    error
	)
	if *devF {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatal(err.Error())
	}
	defer logger.Sync()

	if *addrF == "" {
		logger.Fatal("addr can't be empty")
	}
	if *outDirF == "" {
		logger.Fatal("out dir can't be empty")
	}
	if *maxSizeF == 0 || *maxSizeF > math.MaxUint32 {
		logger.Sugar().Fatalf("max size must be between 1 and %d", uint64(math.MaxUint32))
	}

	ws, err := pkg.NewWorkspace(*outDirF, logger.Sugar(), pkg.WithMaxSize(uint32(*maxSizeF)))
	if err != nil {
		logger.Sugar().Fatalf("error creating workspace: %v", err)
	}

	server := pkg.NewBinPackServer(*addrF, logger.Sugar(), ws)

	go func() {
		if err := server.ListenAndServe(); err != nil {
			logger.Sugar().Errorf("error closing server: %v", err)
		}
	}()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

	<-exit

	logger.Sugar().Infof("shutting down with %d open artifacts", len(ws.Names()))
}
