package export

import (
	"encoding/json"
	"html/template"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sheriffsale/auctionmap/internal/model"
)

// markerView is one map marker: a lone property or a proximity cluster.
type markerView struct {
	Lat     float64      `json:"lat"`
	Lng     float64      `json:"lng"`
	Color   string       `json:"color"`
	Members []memberView `json:"members"`
}

type memberView struct {
	Address     string `json:"address"`
	AuctionID   string `json:"auction_id"`
	Status      string `json:"status"`
	MinBid      string `json:"min_bid"`
	AuctionLink string `json:"auction_link"`
}

type neighborhoodView struct {
	Name    string       `json:"name"`
	Count   int          `json:"count"`
	Markers []markerView `json:"markers"`
}

type mapView struct {
	CenterLat     float64            `json:"center_lat"`
	CenterLng     float64            `json:"center_lng"`
	Neighborhoods []neighborhoodView `json:"neighborhoods"`
}

// WriteHTMLMap writes a self-contained Leaflet map with one marker per
// cluster (clusters of one render as plain property markers) and a
// neighborhood legend sorted by property count. When nothing resolved
// there is nothing to place and no file is written.
func WriteHTMLMap(path string, groups map[string][]model.Cluster) error {
	view, ok := buildMapView(groups)
	if !ok {
		zap.L().Warn("export: no resolved coordinates, skipping map")
		return nil
	}

	data, err := json.Marshal(view)
	if err != nil {
		return eris.Wrap(err, "export: marshal map data")
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create map file")
	}
	defer f.Close() //nolint:errcheck

	if err := mapTemplate.Execute(f, template.JS(data)); err != nil {
		return eris.Wrap(err, "export: render map")
	}

	zap.L().Info("export: map written",
		zap.String("path", path),
		zap.Int("neighborhoods", len(view.Neighborhoods)),
	)
	return nil
}

func buildMapView(groups map[string][]model.Cluster) (*mapView, bool) {
	view := &mapView{}
	var latSum, lngSum float64
	var total int

	for name, clusters := range groups {
		nv := neighborhoodView{Name: name}
		for _, cluster := range clusters {
			lat, lng := cluster.Centroid()
			mv := markerView{Lat: lat, Lng: lng, Color: statusColor(cluster[0].Status)}
			if len(cluster) > 1 {
				mv.Color = "red"
			}
			for _, r := range cluster {
				nv.Count++
				latSum += *r.Lat
				lngSum += *r.Lng
				total++
				mv.Members = append(mv.Members, memberView{
					Address:     r.Address,
					AuctionID:   r.AuctionID,
					Status:      r.Status,
					MinBid:      model.FormatCurrency(r.MinBid),
					AuctionLink: r.AuctionLink,
				})
			}
			nv.Markers = append(nv.Markers, mv)
		}
		if nv.Count > 0 {
			view.Neighborhoods = append(view.Neighborhoods, nv)
		}
	}
	if total == 0 {
		return nil, false
	}

	sort.SliceStable(view.Neighborhoods, func(i, j int) bool {
		if view.Neighborhoods[i].Count != view.Neighborhoods[j].Count {
			return view.Neighborhoods[i].Count > view.Neighborhoods[j].Count
		}
		return view.Neighborhoods[i].Name < view.Neighborhoods[j].Name
	})

	view.CenterLat = latSum / float64(total)
	view.CenterLng = lngSum / float64(total)
	return view, true
}

// statusColor maps an auction status to its marker color.
func statusColor(status string) string {
	s := strings.ToLower(status)
	switch {
	case strings.Contains(s, "sold"):
		return "green"
	case strings.Contains(s, "withdrawn"), strings.Contains(s, "cancelled"):
		return "gray"
	case strings.Contains(s, "postponed"):
		return "orange"
	default:
		return "blue"
	}
}

var mapTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Auction Map</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>
  #map { position: absolute; inset: 0; }
  #legend {
    position: absolute; bottom: 24px; left: 24px; z-index: 1000;
    background: #fff; border: 1px solid #999; border-radius: 4px;
    padding: 10px 14px; font: 13px sans-serif; max-height: 60%; overflow-y: auto;
  }
  #legend h3 { margin: 0 0 8px; font-size: 15px; }
  #legend .count {
    background: #06c; color: #fff; border-radius: 10px;
    padding: 1px 7px; margin-left: 6px; font-size: 12px;
  }
</style>
</head>
<body>
<div id="map"></div>
<div id="legend"><h3>Properties by Neighborhood</h3></div>
<script>
var DATA = {{.}};

var map = L.map('map').setView([DATA.center_lat, DATA.center_lng], 12);
L.tileLayer('https://tile.openstreetmap.org/{z}/{x}/{y}.png', {
  attribution: '&copy; OpenStreetMap contributors'
}).addTo(map);

function popupHTML(marker) {
  var html = '';
  if (marker.members.length > 1) {
    html += '<b>Cluster: ' + marker.members.length + ' nearby properties</b><br>';
  }
  marker.members.forEach(function (m) {
    html += '<div style="margin:4px 0"><b>' + m.address + '</b><br>' +
      'Auction ' + m.auction_id + ' &middot; ' + m.status + ' &middot; ' + m.min_bid;
    if (m.auction_link) {
      html += '<br><a href="' + m.auction_link + '" target="_blank">View auction</a>';
    }
    html += '</div>';
  });
  return html;
}

var legend = document.getElementById('legend');
DATA.neighborhoods.forEach(function (n) {
  var group = L.layerGroup().addTo(map);
  n.markers.forEach(function (marker) {
    L.circleMarker([marker.lat, marker.lng], {
      radius: marker.members.length > 1 ? 10 : 7,
      color: marker.color, fillColor: marker.color, fillOpacity: 0.7
    }).bindPopup(popupHTML(marker)).addTo(group);
  });

  var row = document.createElement('div');
  row.innerHTML = '<b>' + n.name + '</b><span class="count">' + n.count + '</span>';
  row.style.cssText = 'padding:4px 0;cursor:pointer';
  row.onclick = function () {
    if (map.hasLayer(group)) { map.removeLayer(group); row.style.opacity = 0.4; }
    else { map.addLayer(group); row.style.opacity = 1; }
  };
  legend.appendChild(row);
});
</script>
</body>
</html>
`))
