// Package entity maintains the bridged entity registry: which gateway
// devices and groups are exposed northbound, as which device types, and
// through which fabric endpoints.
//
// Device types come out of a declarative resolution table over the
// gateway's expose descriptors. The table runs in order with one winner
// per exclusivity class, so a colour light never doubles as a plain
// light, while a multi-sensor still collects one type per measurement.
// The switch_list, light_list and outlet_list configuration entries
// override the actuator result per entity.
//
// Routing devices carry an extra DoorLock endpoint that mirrors the
// gateway's commissioning window: unlock opens the network for joining,
// lock closes it.
//
// Registration order is preserved; the controller's refresh burst and
// replay iterate entities in the order they were registered.
package entity
