package grpc

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified name of the orchestrator service.
const ServiceName = "chiefofstaff.v1.Orchestrator"

// Full method names, as seen by interceptors.
const (
	SubmitMethod     = "/" + ServiceName + "/Submit"
	ClassifyMethod   = "/" + ServiceName + "/Classify"
	ListAgentsMethod = "/" + ServiceName + "/ListAgents"
	CancelMethod     = "/" + ServiceName + "/Cancel"
)

// OrchestratorServer is the server API of the orchestrator service.
//
// Every message is a google.protobuf.Struct holding the JSON form of the
// corresponding Go type, so the service needs no generated code.
type OrchestratorServer interface {
	// Submit takes a kernel.Request and returns a compose.Result.
	Submit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Classify takes {"text"} and returns a kernel.Classification.
	Classify(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// ListAgents returns {"agents": [...]}.
	ListAgents(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Cancel takes {"request_id", "reason"}.
	Cancel(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type structCall func(OrchestratorServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func structHandler(method string, call structCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(OrchestratorServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(OrchestratorServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// OrchestratorServiceDesc describes the orchestrator service for grpc.Server.
var OrchestratorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OrchestratorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Submit", Handler: structHandler(SubmitMethod, OrchestratorServer.Submit)},
		{MethodName: "Classify", Handler: structHandler(ClassifyMethod, OrchestratorServer.Classify)},
		{MethodName: "ListAgents", Handler: structHandler(ListAgentsMethod, OrchestratorServer.ListAgents)},
		{MethodName: "Cancel", Handler: structHandler(CancelMethod, OrchestratorServer.Cancel)},
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterOrchestratorServer registers srv with s.
func RegisterOrchestratorServer(s grpc.ServiceRegistrar, srv OrchestratorServer) {
	s.RegisterService(&OrchestratorServiceDesc, srv)
}

// =============================================================================
// CLIENT
// =============================================================================

// OrchestratorClient calls the orchestrator service.
type OrchestratorClient struct {
	cc grpc.ClientConnInterface
}

// NewOrchestratorClient creates a client on cc.
func NewOrchestratorClient(cc grpc.ClientConnInterface) *OrchestratorClient {
	return &OrchestratorClient{cc: cc}
}

func (c *OrchestratorClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Submit calls Orchestrator/Submit.
func (c *OrchestratorClient) Submit(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, SubmitMethod, in, opts...)
}

// Classify calls Orchestrator/Classify.
func (c *OrchestratorClient) Classify(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ClassifyMethod, in, opts...)
}

// ListAgents calls Orchestrator/ListAgents.
func (c *OrchestratorClient) ListAgents(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ListAgentsMethod, in, opts...)
}

// Cancel calls Orchestrator/Cancel.
func (c *OrchestratorClient) Cancel(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, CancelMethod, in, opts...)
}

// Call encodes in, invokes method and decodes the reply into out.
func (c *OrchestratorClient) Call(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	req, err := ToStruct(in)
	if err != nil {
		return err
	}
	resp, err := c.invoke(ctx, method, req, opts...)
	if err != nil {
		return err
	}
	return FromStruct(resp, out)
}

// =============================================================================
// STRUCT CONVERSION
// =============================================================================

// ToStruct converts any JSON-encodable value that encodes to an object.
func ToStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %T: %w", v, err)
	}
	m := map[string]any{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%T does not encode to an object: %w", v, err)
	}
	return structpb.NewStruct(m)
}

// FromStruct decodes s into v through its JSON form.
func FromStruct(s *structpb.Struct, v any) error {
	data, err := json.Marshal(s.AsMap())
	if err != nil {
		return fmt.Errorf("encoding struct: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding into %T: %w", v, err)
	}
	return nil
}
