// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package supervisor

// verifyConfigChanges validates a full batch of config changes for
// internal consistency, the way the original's verify_config_changes
// walks the whole Vec<ConfigChange> before accepting a propose. Order of
// checks matches the original: consensus-change uniqueness first, then
// per-instance touch dedup, then per-variant semantic checks.
func verifyConfigChanges(ctx TxContext, changes []ConfigChange) error {
	if len(changes) == 0 {
		return wrap(ErrMalformedConfigPropose, "a config proposal must contain at least one change")
	}

	sawConsensus := false
	touchedInstances := make(map[uint32]struct{})
	unloadedArtifacts := make(map[string]struct{})
	startedNames := make(map[string]struct{})
	startedArtifacts := make(map[string]struct{})

	for _, change := range changes {
		if change.Kind == ChangeConsensus {
			if sawConsensus {
				return wrap(ErrMalformedConfigPropose, "a config proposal must contain at most one Consensus change")
			}
			sawConsensus = true
			if err := change.Consensus.Validate(); err != nil {
				return wrap(ErrMalformedConfigPropose, err.Error())
			}
			continue
		}

		if instanceID, ok := change.touchedInstance(); ok {
			if _, dup := touchedInstances[instanceID]; dup {
				return wrap(ErrMalformedConfigPropose, "instance is targeted by more than one change in the same proposal")
			}
			touchedInstances[instanceID] = struct{}{}
		}

		if change.Kind == ChangeStartService {
			startedArtifacts[change.StartService.Artifact.String()] = struct{}{}
		}

		if err := verifyConfigChange(ctx, change, startedNames, unloadedArtifacts); err != nil {
			return err
		}
	}

	for artifact := range unloadedArtifacts {
		if _, conflict := startedArtifacts[artifact]; conflict {
			return wrap(ErrMalformedConfigPropose, "proposal both starts a service from artifact `"+artifact+"` and unloads it")
		}
	}
	return nil
}

func verifyConfigChange(ctx TxContext, change ConfigChange, startedNames, unloadedArtifacts map[string]struct{}) error {
	switch change.Kind {
	case ChangeService:
		return verifyServiceConfigChange(ctx, change.Service)
	case ChangeStartService:
		return verifyStartServiceChange(ctx, change.StartService, startedNames)
	case ChangeStopService:
		return verifyStopServiceChange(ctx, change.StopService)
	case ChangeFreezeService:
		return verifyFreezeServiceChange(ctx, change.FreezeService)
	case ChangeResumeService:
		return verifyResumeServiceChange(ctx, change.ResumeService)
	case ChangeUnloadArtifact:
		return verifyUnloadArtifactChange(ctx, change.UnloadArtifact, unloadedArtifacts)
	default:
		return wrap(ErrMalformedConfigPropose, "unknown config change kind")
	}
}

func verifyServiceConfigChange(ctx TxContext, c *ServiceConfigChange) error {
	inst, ok := ctx.Dispatcher.GetInstance(c.InstanceID)
	if !ok {
		return wrap(ErrUnknownInstance, "service config change targets unknown instance")
	}
	if err := ctx.Runtime.VerifyConfig(c.InstanceID, c.Params); err != nil {
		return wrap(ErrMalformedConfigPropose, "instance "+inst.Name+" rejected its new config: "+err.Error())
	}
	return nil
}

func verifyStartServiceChange(ctx TxContext, c *StartServiceChange, startedNames map[string]struct{}) error {
	if c.Name == "" {
		return wrap(ErrInvalidInstanceName, "start-service change carries an empty instance name")
	}
	if _, dup := startedNames[c.Name]; dup {
		return wrap(ErrInstanceExists, "instance name "+c.Name+" is started more than once in the same proposal")
	}
	if _, exists := ctx.Dispatcher.GetInstanceByName(c.Name); exists {
		return wrap(ErrInstanceExists, "instance name "+c.Name+" is already in use")
	}
	art, ok := ctx.Dispatcher.GetArtifact(c.Artifact)
	if !ok || art.Status != ArtifactStatusActive {
		return wrap(ErrUnknownArtifact, "cannot start service `"+c.Name+"` from the unknown or inactive artifact `"+c.Artifact.String()+"`")
	}
	startedNames[c.Name] = struct{}{}
	return nil
}

func verifyStopServiceChange(ctx TxContext, c *StopServiceChange) error {
	inst, ok := ctx.Dispatcher.GetInstance(c.InstanceID)
	if !ok {
		return wrap(ErrUnknownInstance, "stop-service change targets unknown instance")
	}
	if !inst.Status.CanBeStopped() {
		return wrap(ErrMalformedConfigPropose, "instance "+inst.Name+" cannot be stopped from status "+inst.Status.String())
	}
	return nil
}

func verifyFreezeServiceChange(ctx TxContext, c *FreezeServiceChange) error {
	inst, ok := ctx.Dispatcher.GetInstance(c.InstanceID)
	if !ok {
		return wrap(ErrUnknownInstance, "freeze-service change targets unknown instance")
	}
	if !inst.Status.CanBeFrozen() {
		return wrap(ErrMalformedConfigPropose, "instance "+inst.Name+" cannot be frozen from status "+inst.Status.String())
	}
	if !ctx.Runtime.CheckFeature(inst.Artifact.RuntimeID, FeatureFreezingServices) {
		return wrap(ErrMalformedConfigPropose, "runtime hosting instance "+inst.Name+" does not support freezing")
	}
	return nil
}

func verifyResumeServiceChange(ctx TxContext, c *ResumeServiceChange) error {
	inst, ok := ctx.Dispatcher.GetInstance(c.InstanceID)
	if !ok {
		return wrap(ErrUnknownInstance, "resume-service change targets unknown instance")
	}
	if !inst.Status.CanBeResumed() {
		return wrap(ErrMalformedConfigPropose, "instance "+inst.Name+" cannot be resumed from status "+inst.Status.String())
	}
	if _, ok := inst.AssociatedArtifact(); !ok {
		return wrap(ErrArtifactAssociationLost, "instance "+inst.Name+" data version "+inst.DataVersion.String()+" no longer matches artifact "+inst.Artifact.String())
	}
	return nil
}

func verifyUnloadArtifactChange(ctx TxContext, c *UnloadArtifactChange, unloadedArtifacts map[string]struct{}) error {
	key := c.ArtifactID.String()
	if _, dup := unloadedArtifacts[key]; dup {
		return wrap(ErrMalformedConfigPropose, "artifact `"+key+"` is unloaded more than once in the same proposal")
	}
	if err := ctx.Dispatcher.CheckUnloadingArtifact(c.ArtifactID); err != nil {
		return wrap(ErrMalformedConfigPropose, "cannot unload artifact `"+key+"`: "+err.Error())
	}
	unloadedArtifacts[key] = struct{}{}
	return nil
}
