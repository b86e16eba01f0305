package api

import (
	"feedsink/app/database"
	"feedsink/app/importer"
	"feedsink/app/provider"
	"feedsink/app/tasks"
)

type Handler struct {
	itemRepo         database.ItemRepository
	subscriptionRepo database.SubscriptionRepository
	creator          *importer.Creator
	scheduler        tasks.TaskSchedulerInterface
	feedProvider     provider.Provider
	batchSize        int
}

func NewHandler(itemRepo database.ItemRepository, subscriptionRepo database.SubscriptionRepository,
	creator *importer.Creator, scheduler tasks.TaskSchedulerInterface, feedProvider provider.Provider) *Handler {
	return &Handler{
		itemRepo:         itemRepo,
		subscriptionRepo: subscriptionRepo,
		creator:          creator,
		scheduler:        scheduler,
		feedProvider:     feedProvider,
		batchSize:        importer.DefaultBatchSize,
	}
}
