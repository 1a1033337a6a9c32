// Package mgmtapi defines the public surface of the appliance API client:
// the Client interface and its configuration, the collection/entity/action
// object model, the error taxonomy, loose version ordering, the filter
// dialect encoder, request/response interceptors, and the optional response
// cache.
//
// The API is hypermedia-driven: the root document indexes the available
// collections by href, collection documents embed resource fragments and
// action declarations, and entities resolve lazily as they are traversed.
// Create clients with pkg/applianceclient:
//
//	client, err := applianceclient.NewWithPassword(ctx,
//		"https://appliance.example.com", "admin", "smartvm")
//	if err != nil {
//		return err
//	}
//
//	vms, err := client.Collection("vms")
//	if err != nil {
//		return err
//	}
//
//	vm, err := vms.Get(ctx, map[string]any{"name": "jenkins-agent-04"})
package mgmtapi
