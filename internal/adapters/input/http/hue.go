package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/amimof/huego"
	"github.com/go-chi/chi/v5"
	"media-player-card/internal/domain/model"
)

func (s *Server) registerHueRoutes(r chi.Router) {
	r.Get("/description.xml", s.handleDescription)
	r.Post("/api", s.handleRegister)
	r.Route("/api/{user}", func(r chi.Router) {
		r.Get("/", s.handleFullState)
		r.Get("/lights", s.handleGetLights)
		r.Get("/lights/{id}", s.handleGetLight)
		r.Put("/lights/{id}/state", s.handleSetLightState)
	})
}

func (s *Server) handleDescription(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/xml")
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8" ?>
<root xmlns="urn:schemas-upnp-org:device-1-0">
<specVersion>
<major>1</major>
<minor>0</minor>
</specVersion>
<URLBase>http://%s:80/</URLBase>
<device>
<deviceType>urn:schemas-upnp-org:device:Basic:1</deviceType>
<friendlyName>Media cards (%s)</friendlyName>
<manufacturer>Royal Philips Electronics</manufacturer>
<manufacturerURL>http://www.philips.com</manufacturerURL>
<modelDescription>Philips hue Personal Wireless Lighting</modelDescription>
<modelName>Philips hue bridge 2012</modelName>
<modelNumber>929000226503</modelNumber>
<modelURL>http://www.meethue.com</modelURL>
<serialNumber>001788102201</serialNumber>
<UDN>uuid:2f402f80-da50-11e1-9b23-001788102201</UDN>
<presentationURL>cards</presentationURL>
</device>
</root>`, s.ip, s.ip)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `[{"success":{"username": "admin"}}]`)
}

func toLight(d *model.Device) *huego.Light {
	return &huego.Light{
		Name:             d.Name,
		Type:             d.Metadata.Type,
		State:            d.State,
		ModelID:          d.Metadata.ModelID,
		UniqueID:         d.CardID,
		ManufacturerName: d.Metadata.ManufacturerName,
	}
}

func (s *Server) lights(r *http.Request) (map[string]*huego.Light, error) {
	devices, err := s.hue.GetDevices(r.Context())
	if err != nil {
		return nil, err
	}
	lights := make(map[string]*huego.Light, len(devices))
	for _, d := range devices {
		lights[d.ID] = toLight(d)
	}
	return lights, nil
}

func (s *Server) handleFullState(w http.ResponseWriter, r *http.Request) {
	lights, err := s.lights(r)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	fullState := map[string]any{
		"lights": lights,
		"groups": map[string]any{},
		"config": map[string]any{
			"name":       "Philips hue",
			"swversion":  "01003542",
			"apiversion": "1.11.0",
			"mac":        "00:17:88:10:22:01",
			"bridgeid":   "001788FFFE102201",
			"modelid":    "BSB001",
		},
	}
	writeJSON(w, http.StatusOK, fullState)
}

func (s *Server) handleGetLights(w http.ResponseWriter, r *http.Request) {
	lights, err := s.lights(r)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lights)
}

func (s *Server) handleGetLight(w http.ResponseWriter, r *http.Request) {
	device, err := s.hue.GetDevice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLight(device))
}

// handleSetLightState starts the matching card actions and answers the Hue
// way right away, without waiting for Home Assistant.
func (s *Server) handleSetLightState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var update model.HueStateUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.hue.UpdateDeviceState(r.Context(), id, update); err != nil {
		s.writeDomainError(w, err)
		return
	}

	resp := []map[string]any{}
	if update.On != nil {
		resp = append(resp, hueSuccess(id, "on", *update.On))
	}
	if update.Bri != nil {
		resp = append(resp, hueSuccess(id, "bri", *update.Bri))
	}
	writeJSON(w, http.StatusOK, resp)
}

func hueSuccess(id, key string, v any) map[string]any {
	return map[string]any{
		"success": map[string]any{
			fmt.Sprintf("/lights/%s/state/%s", id, key): v,
		},
	}
}
