package listing

import (
	"reflect"
	"sort"
	"time"

	"carpulse-backend/lib/textutil"

	"dario.cat/mergo"
	"github.com/antzucaro/matchr"
)

// mergo recurses into struct fields, which does not work for time.Time
// (unexported fields); treat it as an atomic value instead
type timeTransformer struct{}

func (timeTransformer) Transformer(typ reflect.Type) func(dst, src reflect.Value) error {
	if typ != reflect.TypeOf(time.Time{}) {
		return nil
	}
	return func(dst, src reflect.Value) error {
		if dst.CanSet() && dst.Interface().(time.Time).IsZero() {
			dst.Set(src)
		}
		return nil
	}
}

// static reliability ranking used to resolve field conflicts: auction
// houses publish verified data, curated marketplaces are close behind,
// generic marketplaces trail
var sourceReliability = map[string]int{
	"bonhams":       100,
	"rmsothebys":    100,
	"gooding":       95,
	"bringatrailer": 90,
	"carsandbids":   85,
	"hemmings":      70,
	"ebay":          50,
	"craigslist":    30,
}

const unknownSourceReliability = 10

func reliabilityOf(sourceID string) int {
	if rank, ok := sourceReliability[sourceID]; ok {
		return rank
	}
	return unknownSourceReliability
}

// Merge combines records believed to describe one vehicle. The most
// reliable record is the base; every field it leaves undefined is filled
// from the next most reliable record that defines it, vehicle attributes
// individually. Deterministic: ties keep input order.
func Merge(records []Record) Record {
	if len(records) == 0 {
		return Record{}
	}
	if len(records) == 1 {
		return records[0]
	}

	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(a, b int) bool {
		return reliabilityOf(sorted[a].SourceID) > reliabilityOf(sorted[b].SourceID)
	})

	base := sorted[0]
	for _, other := range sorted[1:] {
		// "unknown" is a defined zero for mergo's purposes but an
		// undefined value for ours
		if base.Vehicle.Transmission == TransmissionUnknown {
			base.Vehicle.Transmission = ""
		}
		if other.Vehicle.Transmission == TransmissionUnknown {
			other.Vehicle.Transmission = ""
		}
		// fills zero-valued fields only, recursing into Vehicle
		err := mergo.Merge(&base, other, mergo.WithTransformers(timeTransformer{}))
		if err != nil {
			// only reachable with mismatched types, which the
			// signature rules out
			continue
		}
	}
	if base.Vehicle.Transmission == "" {
		base.Vehicle.Transmission = TransmissionUnknown
	}
	return base
}

// GroupByVehicle buckets records that likely describe the same vehicle
// across sources: exact normalized-title matches first, then a greedy
// Jaro-Winkler pass over what remains.
func GroupByVehicle(records []Record, threshold float64) [][]Record {
	if threshold <= 0 {
		threshold = 0.92
	}

	var groups [][]Record
	assigned := make([]bool, len(records))

	for i := range records {
		if assigned[i] {
			continue
		}
		group := []Record{records[i]}
		assigned[i] = true
		key := textutil.NormalizeName(records[i].Title)

		for j := i + 1; j < len(records); j++ {
			if assigned[j] {
				continue
			}
			candidate := textutil.NormalizeName(records[j].Title)
			if candidate == key || matchr.JaroWinkler(key, candidate, false) >= threshold {
				group = append(group, records[j])
				assigned[j] = true
			}
		}
		groups = append(groups, group)
	}

	return groups
}

// MergeAcrossSources is the convenience composition of grouping and
// merging: one output record per distinct vehicle.
func MergeAcrossSources(records []Record, threshold float64) []Record {
	var out []Record
	for _, group := range GroupByVehicle(records, threshold) {
		out = append(out, Merge(group))
	}
	return out
}
