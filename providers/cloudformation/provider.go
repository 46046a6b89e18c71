// Package cloudformation adapts AWS CloudFormation to the engine's provider
// contract. It deliberately covers only the four abstract operations plus
// outputs; change-set review, drift, and rollback tuning are out of scope.
package cloudformation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	cfn "github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/smithy-go"

	"github.com/strata-io/strata/internal/ir"
	"github.com/strata-io/strata/internal/provider"
)

// Provider drives CloudFormation stacks.
type Provider struct {
	client *cfn.Client
}

// New builds a CloudFormation provider for the given region.
func New(ctx context.Context, region, profile string) (*Provider, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}
	return &Provider{client: cfn.NewFromConfig(cfg)}, nil
}

func (p *Provider) Status(ctx context.Context, stack *ir.Stack) (provider.StackState, error) {
	desc, err := p.describe(ctx, stack.FQN())
	if err != nil {
		if isNotExists(err) {
			return provider.StateDoesNotExist, nil
		}
		return "", err
	}
	return mapStatus(desc.StackStatus), nil
}

func (p *Provider) CreateOrUpdate(ctx context.Context, stack *ir.Stack, vars map[string]string) (*provider.Operation, error) {
	fqn := stack.FQN()
	params := make([]cfntypes.Parameter, 0, len(vars))
	for k, v := range vars {
		params = append(params, cfntypes.Parameter{
			ParameterKey:   aws.String(k),
			ParameterValue: aws.String(v),
		})
	}
	tags := make([]cfntypes.Tag, 0, len(stack.Tags))
	for k, v := range stack.Tags {
		tags = append(tags, cfntypes.Tag{Key: aws.String(k), Value: aws.String(v)})
	}

	_, err := p.describe(ctx, fqn)
	switch {
	case err == nil:
		_, err = p.client.UpdateStack(ctx, &cfn.UpdateStackInput{
			StackName:    aws.String(fqn),
			TemplateURL:  templateURL(stack),
			Parameters:   params,
			Tags:         tags,
			Capabilities: []cfntypes.Capability{cfntypes.CapabilityCapabilityNamedIam},
		})
		if err != nil {
			if isNoUpdates(err) {
				// Nothing to change; report a synchronously complete
				// operation.
				return &provider.Operation{Stack: fqn}, nil
			}
			return nil, err
		}
	case isNotExists(err):
		_, err = p.client.CreateStack(ctx, &cfn.CreateStackInput{
			StackName:    aws.String(fqn),
			TemplateURL:  templateURL(stack),
			Parameters:   params,
			Tags:         tags,
			Capabilities: []cfntypes.Capability{cfntypes.CapabilityCapabilityNamedIam},
		})
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	return &provider.Operation{Stack: fqn, ID: fqn}, nil
}

func (p *Provider) Destroy(ctx context.Context, stack *ir.Stack) (*provider.Operation, error) {
	fqn := stack.FQN()
	_, err := p.client.DeleteStack(ctx, &cfn.DeleteStackInput{
		StackName: aws.String(fqn),
	})
	if err != nil {
		return nil, err
	}
	return &provider.Operation{Stack: fqn, ID: fqn}, nil
}

func (p *Provider) Poll(ctx context.Context, op *provider.Operation) (provider.StackState, error) {
	if op.ID == "" {
		return provider.StateComplete, nil
	}
	desc, err := p.describe(ctx, op.Stack)
	if err != nil {
		if isNotExists(err) {
			return provider.StateDoesNotExist, nil
		}
		return "", err
	}
	return mapStatus(desc.StackStatus), nil
}

func (p *Provider) Outputs(ctx context.Context, fqn string) (map[string]string, error) {
	desc, err := p.describe(ctx, fqn)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(desc.Outputs))
	for _, o := range desc.Outputs {
		out[aws.ToString(o.OutputKey)] = aws.ToString(o.OutputValue)
	}
	return out, nil
}

func (p *Provider) describe(ctx context.Context, name string) (*cfntypes.Stack, error) {
	result, err := p.client.DescribeStacks(ctx, &cfn.DescribeStacksInput{
		StackName: aws.String(name),
	})
	if err != nil {
		return nil, err
	}
	if len(result.Stacks) == 0 {
		return nil, fmt.Errorf("stack %s not found in response", name)
	}
	return &result.Stacks[0], nil
}

// mapStatus folds CloudFormation's status vocabulary into the engine's four
// states.
func mapStatus(status cfntypes.StackStatus) provider.StackState {
	s := string(status)
	switch {
	case strings.HasSuffix(s, "_IN_PROGRESS"):
		return provider.StateInProgress
	case status == cfntypes.StackStatusDeleteComplete:
		return provider.StateDoesNotExist
	case status == cfntypes.StackStatusCreateComplete,
		status == cfntypes.StackStatusUpdateComplete,
		status == cfntypes.StackStatusImportComplete,
		status == cfntypes.StackStatusUpdateRollbackComplete:
		return provider.StateComplete
	default:
		return provider.StateFailed
	}
}

func templateURL(stack *ir.Stack) *string {
	if stack.TemplateURL == "" {
		return nil
	}
	return aws.String(stack.TemplateURL)
}

func isNotExists(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "ValidationError" &&
			strings.Contains(apiErr.ErrorMessage(), "does not exist")
	}
	return false
}

func isNoUpdates(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return strings.Contains(apiErr.ErrorMessage(), "No updates are to be performed")
	}
	return false
}
