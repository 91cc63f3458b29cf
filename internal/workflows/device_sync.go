package workflows

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/trackmap/internal/core/domain"
)

// DeviceSyncInput is the input for the device sync workflow.
type DeviceSyncInput struct {
	VehicleID int64
}

// DeviceSyncWorkflow mirrors the tracker device of one vehicle: load the
// vehicle, register its device when missing, collect the latest tracking
// data and persist it. Every step is retried on transient failures.
func DeviceSyncWorkflow(ctx workflow.Context, input DeviceSyncInput) (domain.Vehicle, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting device sync", "vehicleID", input.VehicleID)

	ctx = workflow.WithActivityOptions(ctx, activityOptions())

	var v domain.Vehicle
	if err := workflow.ExecuteActivity(ctx, "LoadVehicle", input.VehicleID).Get(ctx, &v); err != nil {
		return v, err
	}

	if err := workflow.ExecuteActivity(ctx, "EnsureDevice", v).Get(ctx, &v); err != nil {
		return v, err
	}
	deviceID, err := strconv.ParseInt(v.DeviceID, 10, 64)
	if err != nil {
		return v, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("vehicle %d has invalid device id %q", v.ID, v.DeviceID), "InvalidDeviceID", err)
	}

	var snap TrackingSnapshot
	if err := workflow.ExecuteActivity(ctx, "CollectTracking", v, deviceID).Get(ctx, &snap); err != nil {
		return v, err
	}

	if err := workflow.ExecuteActivity(ctx, "Persist", snap).Get(ctx, nil); err != nil {
		return v, err
	}

	logger.Info("Device sync complete", "vehicleID", input.VehicleID, "deviceID", deviceID, "status", snap.Vehicle.Status)
	return snap.Vehicle, nil
}

// TrackingInfoWorkflow copies the latest positions onto bound vehicles. It
// is started on a cron schedule by the syncer.
func TrackingInfoWorkflow(ctx workflow.Context) (int, error) {
	ctx = workflow.WithActivityOptions(ctx, activityOptions())

	var updated int
	err := workflow.ExecuteActivity(ctx, "UpdateTrackingInfo").Get(ctx, &updated)
	return updated, err
}

func activityOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: time.Second,
			MaximumAttempts: 3,
		},
	}
}

// Starter starts device sync workflows on a task queue.
type Starter struct {
	client    client.Client
	taskQueue string
}

// NewStarter creates a new Starter.
func NewStarter(c client.Client, taskQueue string) *Starter {
	return &Starter{client: c, taskQueue: taskQueue}
}

// StartDeviceSync starts a sync for vehicleID and returns the run id. A
// sync already running for the same vehicle is joined rather than duplicated.
func (s *Starter) StartDeviceSync(ctx context.Context, vehicleID int64) (string, error) {
	run, err := s.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        DeviceSyncWorkflowID(vehicleID),
		TaskQueue: s.taskQueue,
	}, DeviceSyncWorkflow, DeviceSyncInput{VehicleID: vehicleID})
	if err != nil {
		return "", fmt.Errorf("start device sync for vehicle %d: %w", vehicleID, err)
	}
	return run.GetRunID(), nil
}

// DeviceSyncWorkflowID is the workflow id used for a vehicle's sync.
func DeviceSyncWorkflowID(vehicleID int64) string {
	return "device-sync-" + strconv.FormatInt(vehicleID, 10)
}

// TrackingInfoWorkflowID is the fixed id of the scheduled tracking refresh.
const TrackingInfoWorkflowID = "tracking-info"

// ScheduleTrackingInfo starts TrackingInfoWorkflow on a cron schedule. An
// already running schedule is left in place.
func (s *Starter) ScheduleTrackingInfo(ctx context.Context, cron string) error {
	_, err := s.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:           TrackingInfoWorkflowID,
		TaskQueue:    s.taskQueue,
		CronSchedule: cron,
	}, TrackingInfoWorkflow)
	var started *serviceerror.WorkflowExecutionAlreadyStarted
	if err != nil && !errors.As(err, &started) {
		return fmt.Errorf("schedule tracking info: %w", err)
	}
	return nil
}
