package controllers

import "queueless-backend/services"

var (
	queueSvc      *services.QueueService
	predictionSvc *services.PredictionService
)

// Init wires the shared services into the handler package. Called once from
// main before the router starts.
func Init(queue *services.QueueService, prediction *services.PredictionService) {
	queueSvc = queue
	predictionSvc = prediction
}
