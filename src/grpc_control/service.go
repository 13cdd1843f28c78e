package grpc_control

import (
	"context"
	"fmt"
	"sort"
	"time"

	"market-structure/src/interfaces"
	"market-structure/src/logger"
	"market-structure/src/models"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// SourceRegistry lists the running data sources
type SourceRegistry interface {
	GetAllSources() []interfaces.IDataSource
}

// -----------------------------------------------------------------------------

// ControlService answers read-only operational queries about the engine
type ControlService struct {
	View    interfaces.IStructureView
	Sources SourceRegistry
	Logger  *logger.Logger
	started time.Time
}

// NewControlService creates a new instance of ControlService. sources may be nil.
func NewControlService(view interfaces.IStructureView, sources SourceRegistry, log *logger.Logger) *ControlService {
	return &ControlService{
		View:    view,
		Sources: sources,
		Logger:  log,
		started: time.Now(),
	}
}

var _ ControlServer = (*ControlService)(nil)

// -----------------------------------------------------------------------------

func (s *ControlService) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	stats := s.View.Stats()
	return toStruct(map[string]interface{}{
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"resolutions":    s.labels(),
		"keys":           stats.Keys,
		"ingested":       stats.Ingested,
		"rejected":       stats.Rejected,
		"closed":         stats.Closed,
		"structures":     stats.Structures,
		"reversals":      stats.Reversals,
		"live_trends":    len(s.View.LiveTrends()),
	})
}

// -----------------------------------------------------------------------------

func (s *ControlService) ListResolutions(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	var list []interface{}
	for _, r := range s.View.Resolutions() {
		list = append(list, map[string]interface{}{
			"label":           r.Label,
			"duration_millis": r.Duration.Milliseconds(),
		})
	}
	return toStruct(map[string]interface{}{"resolutions": list})
}

// -----------------------------------------------------------------------------

func (s *ControlService) ListSources(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	var list []interface{}
	if s.Sources != nil {
		sources := s.Sources.GetAllSources()
		sort.Slice(sources, func(i, j int) bool { return sources[i].Name() < sources[j].Name() })
		for _, src := range sources {
			list = append(list, map[string]interface{}{
				"name":    src.Name(),
				"symbols": stringList(src.Symbols()),
			})
		}
	}
	return toStruct(map[string]interface{}{"sources": list})
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetTrend(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	symbol := fields["symbol"].GetStringValue()
	resolution := fields["resolution"].GetStringValue()
	if symbol == "" || resolution == "" {
		return nil, status.Error(codes.InvalidArgument, "symbol and resolution are required")
	}

	key := models.Key{Symbol: symbol, Resolution: resolution}
	trend, ok := s.View.Trend(key)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "no live trend for %s", key)
	}

	return toStruct(map[string]interface{}{
		"symbol":        trend.Symbol,
		"resolution":    trend.Resolution,
		"direction":     string(trend.Direction),
		"start_time":    trend.StartTime,
		"end_time":      trend.EndTime,
		"high":          trend.High,
		"low":           trend.Low,
		"high_time":     trend.HighTime,
		"low_time":      trend.LowTime,
		"relative_high": trend.RelativeHigh,
		"relative_low":  trend.RelativeLow,
	})
}

// -----------------------------------------------------------------------------

func (s *ControlService) labels() []interface{} {
	var out []interface{}
	for _, r := range s.View.Resolutions() {
		out = append(out, r.Label)
	}
	return out
}

// -----------------------------------------------------------------------------

func toStruct(m map[string]interface{}) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return st, nil
}

func stringList(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
