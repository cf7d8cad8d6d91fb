package main

import (
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/Clark-Hu/boxoffice-viewer/internal/upstreammock"
)

func main() {
	var (
		port    = flag.String("port", "9099", "port to listen on")
		data    = flag.String("data", "", "path to a dailyBoxOfficeList JSON array (embedded fixture when empty)")
		logReqs = flag.Bool("log", false, "enable request logging")
	)
	flag.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	var daily []byte
	if *data != "" {
		raw, err := os.ReadFile(*data)
		if err != nil {
			logger.WithError(err).Fatal("read mock data")
		}
		daily = raw
	}

	mock, err := upstreammock.New(upstreammock.Options{Daily: daily, Logger: logger})
	if err != nil {
		logger.WithError(err).Fatal("parse mock data")
	}

	handler := mock.Routes()
	if *logReqs {
		handler = middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: logger, NoColor: true})(handler)
	}

	srv := &http.Server{
		Addr:              ":" + *port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.WithField("addr", srv.Addr).Info("upstream mock listening")
	if err := srv.ListenAndServe(); err != nil {
		logger.WithError(err).Fatal("server error")
	}
}
