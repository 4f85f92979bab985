package main

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/reflection/grpc_reflection_v1"
	"google.golang.org/grpc/reflection/grpc_reflection_v1alpha"
)

// describedServices lists only services backed by a registered proto file.
// The arena service uses the JSON codec and has no descriptor to serve.
type describedServices struct {
	srv *grpc.Server
}

func (d describedServices) GetServiceInfo() map[string]grpc.ServiceInfo {
	info := d.srv.GetServiceInfo()
	for name, si := range info {
		if file, ok := si.Metadata.(string); !ok || file == "" {
			delete(info, name)
		}
	}
	return info
}

// registerReflection serves reflection for the described services
func registerReflection(srv *grpc.Server) {
	opts := reflection.ServerOptions{Services: describedServices{srv: srv}}
	grpc_reflection_v1.RegisterServerReflectionServer(srv, reflection.NewServerV1(opts))
	grpc_reflection_v1alpha.RegisterServerReflectionServer(srv, reflection.NewServer(opts))
}
