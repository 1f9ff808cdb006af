package vfs

const metadataKey = "vfs/metadata"

// metadataStore keeps node metadata keyed by node id in a single YAML
// document. Every change re-reads the document so external writers aren't
// clobbered wholesale.
type metadataStore struct {
	store KeyValueStore
}

func (s *metadataStore) load() (map[string]Metadata, error) {
	all := make(map[string]Metadata)
	if _, err := getYAML(s.store, metadataKey, &all); err != nil {
		return nil, err
	}
	if all == nil {
		all = make(map[string]Metadata)
	}
	return all, nil
}

func (s *metadataStore) get(id string) (Metadata, bool, error) {
	all, err := s.load()
	if err != nil {
		return Metadata{}, false, err
	}
	md, ok := all[id]
	return md, ok, nil
}

func (s *metadataStore) put(id string, md Metadata) error {
	all, err := s.load()
	if err != nil {
		return err
	}
	all[id] = md
	return setYAML(s.store, metadataKey, all)
}

func (s *metadataStore) drop(ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	all, err := s.load()
	if err != nil {
		return err
	}
	for _, id := range ids {
		delete(all, id)
	}
	return setYAML(s.store, metadataKey, all)
}
