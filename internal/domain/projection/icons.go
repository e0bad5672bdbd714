package projection

type iconPair struct {
	on  string
	off string
}

var deviceIcons = map[string]iconPair{
	"tv":       {on: "mdi:television", off: "mdi:television-off"},
	"speaker":  {on: "mdi:speaker", off: "mdi:speaker-off"},
	"receiver": {on: "mdi:audio-video", off: "mdi:audio-video-off"},
}

var defaultDeviceIcon = iconPair{on: "mdi:cast", off: "mdi:cast-off"}

// DeviceIcon picks the device indicator for a device class. Unknown classes
// get the cast icon.
func DeviceIcon(deviceClass string, isOn bool) string {
	pair, ok := deviceIcons[deviceClass]
	if !ok {
		pair = defaultDeviceIcon
	}
	if isOn {
		return pair.on
	}
	return pair.off
}
