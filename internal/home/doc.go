// Package home holds the scripted domain objects of a site: rooms, devices
// and services, owned by one Home.
//
// Each entity may carry a script created through the script manager. The
// script reaches its entity only through a View holding a weak pointer, so
// removing an entity from the Home releases it even while scripts or event
// bindings still refer to its View.
//
// Publish persists an entity (name and Store properties) and broadcasts its
// configuration; PublishState broadcasts its Visible properties:
//
//	h := home.New(home.Deps{
//	    Name:       "Gray Logic",
//	    Scripts:    manager,
//	    Repository: home.NewSQLiteRepository(db.DB),
//	    Publisher:  home.NewMQTTPublisher(mqttClient),
//	})
//	if err := h.Load(ctx); err != nil { ... }
//	defer h.Close()
package home
