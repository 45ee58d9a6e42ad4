package main

import (
	"context"
	"flag"
	"log/slog"
	"time"

	"courseadmin/bot"
	"courseadmin/impl/core"
	"courseadmin/internal/config"
	"courseadmin/internal/database"
	"courseadmin/internal/http-server/api"
	"courseadmin/lib/logger"
	"courseadmin/lib/sl"
)

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	log := logger.SetupLogger(conf.Env, *logPath)
	log.Info("starting courseadmin", slog.String("config", *configPath), slog.String("env", conf.Env))

	store, err := database.NewSQLClient(conf)
	if err != nil {
		log.Error("sql client", sl.Err(err))
		return
	}
	defer store.Close()
	log.With(slog.String("driver", store.Driver())).Info("store connected")

	var tgBot *bot.TgBot
	if conf.Telegram.Enabled {
		tgBot, err = bot.NewTgBot(conf.Telegram.ApiKey, conf.Telegram.AdminChatIds, log)
		if err != nil {
			log.Error("telegram bot", sl.Err(err))
			return
		}
		log = slog.New(logger.NewTelegramHandler(log.Handler(), tgBot, logger.ParseLevel(conf.Telegram.MinLogLevel)))
	}

	handler := core.New(store, core.Config{
		JwtSecret: conf.Auth.JwtSecret,
		TokenTTL:  time.Duration(conf.Auth.TokenTTLHours) * time.Hour,
	}, log)

	if mongo := database.NewMongoClient(conf); mongo != nil {
		handler.SetAuditLog(mongo)
		log.With(slog.String("database", conf.Mongo.Database)).Info("audit log enabled")
	}

	if tgBot != nil {
		tgBot.SetReviewer(handler)
		handler.SetNotifier(tgBot)
		go func() {
			if err := tgBot.Start(); err != nil {
				log.Error("telegram bot", sl.Err(err))
			}
		}()
		defer tgBot.Stop()
		log.Info("telegram bot started")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	created, err := handler.EnsureAdmin(ctx, conf.Auth.AdminEmail, conf.Auth.AdminPassword)
	cancel()
	if err != nil {
		log.Error("bootstrap admin", sl.Err(err))
		return
	}
	if created {
		log.With(slog.String("email", conf.Auth.AdminEmail)).Info("bootstrap admin created")
	}

	// will block here until the server is stopped
	if err = api.New(conf, log, handler); err != nil {
		log.Error("server stopped", sl.Err(err))
	}
}
