// Package pipeline translates between gateway payloads and endpoint
// state in both directions.
//
// Inbound, Apply runs a decoded state payload through an ordered mapping
// table: each known key becomes a change-detecting attribute write or a
// switch event, with measurement values broadcast to matching child
// endpoints. The table order fixes evaluation so keys that depend on
// others (color after color_mode) resolve the same way for every payload.
//
// Outbound, CommandHandler turns fabric commands into <entity>/set
// publishes. Router lock endpoints are the exception: their lock and
// unlock commands drive the gateway's commissioning window via
// bridge/request/permit_join.
//
// Unit conversions live in color.go and follow the gateway's encodings:
// temperatures in hundredths, illuminance on the 10000*log10(lux)+1
// scale, hue and saturation in the 0..254 cluster range.
package pipeline
