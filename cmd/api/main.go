package main

import (
	"context"
	"time"

	bookingshandler "loyly/internal/bookings/handler"
	bookingsrepository "loyly/internal/bookings/repository"
	bookingsservice "loyly/internal/bookings/service"
	inviteshandler "loyly/internal/invites/handler"
	invitesrepository "loyly/internal/invites/repository"
	invitesservice "loyly/internal/invites/service"
	invitesvalidator "loyly/internal/invites/validator"
	remindershandler "loyly/internal/reminders/handler"
	remindersscheduler "loyly/internal/reminders/scheduler"
	remindersservice "loyly/internal/reminders/service"
	saunashandler "loyly/internal/saunas/handler"
	saunasrepository "loyly/internal/saunas/repository"
	saunasservice "loyly/internal/saunas/service"
	saunasvalidator "loyly/internal/saunas/validator"
	usershandler "loyly/internal/users/handler"
	usersrepository "loyly/internal/users/repository"
	usersservice "loyly/internal/users/service"
	waitlisthandler "loyly/internal/waitlist/handler"
	waitlistrepository "loyly/internal/waitlist/repository"
	waitlistservice "loyly/internal/waitlist/service"
	"loyly/pkg/app"
	"loyly/pkg/config"
	"loyly/pkg/contracts"
	"loyly/pkg/kafka"
	"loyly/pkg/mailer"

	"github.com/go-co-op/gocron/v2"
	"github.com/julienschmidt/httprouter"
	_ "github.com/joho/godotenv/autoload"
)

const ServiceName = "api"

// compositeHandler mounts every domain handler on the shared router.
type compositeHandler struct {
	handlers []contracts.Handler
}

func (c *compositeHandler) RegisterRoutes(router *httprouter.Router) {
	for _, h := range c.handlers {
		h.RegisterRoutes(router)
	}
}

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting API service")

	cronScheduler, err := gocron.NewScheduler()
	if err != nil {
		cfg.Log.Fatal("Failed to create cron scheduler", "error", err)
	}

	appHandler, userService := initServices(cfg, cronScheduler)

	cronScheduler.Start()
	defer func() {
		if err := cronScheduler.Shutdown(); err != nil {
			cfg.Log.Error("Cron scheduler shutdown failed", "error", err)
		}
	}()

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(appHandler, userService)
	serverApp.Run()
}

func initServices(cfg *config.Config, cronScheduler gocron.Scheduler) (contracts.Handler, usersservice.UserService) {
	userRepo := usersrepository.NewMongoUserRepository(cfg)
	saunaRepo := saunasrepository.NewMongoSaunaRepository(cfg)
	bookingRepo := bookingsrepository.NewMongoBookingRepository(cfg)
	slotLockRepo := bookingsrepository.NewSlotLockRepository(cfg)
	waitlistRepo := waitlistrepository.NewMongoWaitlistRepository(cfg)
	inviteRepo := invitesrepository.NewMongoInviteRepository(cfg)

	mail := mailer.NewSMTPMailer(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
		FromName: cfg.MailFromName,
	}, cfg.Log)

	userService := usersservice.NewUserService(userRepo, inviteRepo, cfg)

	saunaService := saunasservice.NewSaunaService(
		saunaRepo,
		userService,
		bookingRepo,
		waitlistRepo,
		inviteRepo,
		userRepo,
		saunasvalidator.NewSaunaValidator(),
		cfg,
	)

	var reminderScheduler remindersscheduler.Scheduler
	var localScheduler *remindersscheduler.LocalScheduler
	if cfg.SchedulerMode == config.SchedulerModeKafka {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.ReminderTopic)
		if err != nil {
			cfg.Log.Fatal("Failed to create reminder producer", "error", err)
		}
		reminderScheduler = remindersscheduler.NewKafkaScheduler(producer, cfg.Log)
		cfg.Log.Info("Reminder scheduling via Kafka", "topic", cfg.ReminderTopic)
	} else {
		localScheduler = remindersscheduler.NewLocalScheduler(cronScheduler, cfg.Log)
		reminderScheduler = localScheduler
		cfg.Log.Info("Reminder scheduling in-process")
	}

	reminderService := remindersservice.NewReminderService(
		reminderScheduler,
		bookingRepo,
		userService,
		saunaService,
		mail,
		cfg,
	)
	if localScheduler != nil {
		localScheduler.SetHandler(reminderService.HandleNotification)
	}

	waitlistService := waitlistservice.NewWaitlistService(
		waitlistRepo,
		userService,
		saunaService,
		userService,
		bookingRepo,
		mail,
		cfg,
	)

	bookingService := bookingsservice.NewBookingService(
		bookingRepo,
		slotLockRepo,
		userService,
		saunaService,
		waitlistService,
		reminderService,
		cfg,
	)

	inviteService := invitesservice.NewInviteService(
		inviteRepo,
		saunaService,
		userService,
		mail,
		invitesvalidator.NewInviteValidator(),
		cfg,
	)

	scheduleInviteSweep(cfg, cronScheduler, inviteService)

	cfg.Log.Info("Services initialized", "database", cfg.MongoDatabaseName)

	return &compositeHandler{handlers: []contracts.Handler{
		usershandler.NewUserHandler(userService, cfg.Log),
		saunashandler.NewSaunaHandler(saunaService, cfg.Log),
		bookingshandler.NewBookingHandler(bookingService, userService, cfg.Log),
		waitlisthandler.NewWaitlistHandler(waitlistService, cfg.Log),
		inviteshandler.NewInviteHandler(inviteService, cfg.Log),
		remindershandler.NewWebhookHandler(reminderService, cfg.Log),
	}}, userService
}

// scheduleInviteSweep expires lapsed invites every hour so stale invites stop
// blocking bookings even when nobody touches them.
func scheduleInviteSweep(cfg *config.Config, cronScheduler gocron.Scheduler, invites invitesservice.InviteService) {
	_, err := cronScheduler.NewJob(
		gocron.DurationJob(time.Hour),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if _, err := invites.ExpireLapsed(ctx); err != nil {
				cfg.Log.Error("Invite expiry sweep failed", "error", err)
			}
		}),
	)
	if err != nil {
		cfg.Log.Fatal("Failed to schedule invite expiry sweep", "error", err)
	}
}
