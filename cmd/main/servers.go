package main

import (
	"context"
	"fmt"
	"net"

	datasource "market-structure/src/data_source"
	pb "market-structure/src/grpc_control"
	"market-structure/src/logger"
	"market-structure/src/models"

	"google.golang.org/grpc"
)

const defaultGrpcPort = 50051

// -----------------------------------------------------------------------------

type runningServers struct {
	app    *pipeline
	grpc   *grpc.Server
	logger *logger.Logger
}

// -----------------------------------------------------------------------------

// startServers orchestrates the startup of all server components
func startServers(config *models.MConfig, app *pipeline, multiSource *datasource.MultiSourceManager, appLogger *logger.Logger) *runningServers {
	rs := &runningServers{app: app, logger: appLogger}

	// 1. REST + WebSocket
	go func() {
		if err := app.server.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	// 2. gRPC Control Server
	port := config.GrpcPort
	if port == 0 {
		port = defaultGrpcPort
	}
	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", config.GrpcHost, port))
	if err != nil {
		appLogger.Critical("failed to listen for gRPC: %v", err)
		return rs
	}

	rs.grpc = grpc.NewServer()
	controlService := pb.NewControlService(app.engine, multiSource, logger.NewLogger(config, "ControlService"))
	pb.RegisterControlServer(rs.grpc, controlService)

	go func() {
		appLogger.Info("Starting gRPC Control Server on %s", lis.Addr())
		if err := rs.grpc.Serve(lis); err != nil {
			appLogger.Critical("failed to serve gRPC: %v", err)
		}
	}()
	return rs
}

// -----------------------------------------------------------------------------

func (rs *runningServers) stop(ctx context.Context) {
	if rs.grpc != nil {
		rs.grpc.GracefulStop()
	}
	if err := rs.app.server.Stop(ctx); err != nil {
		rs.logger.Error("Error stopping server: %v", err)
	}
}
