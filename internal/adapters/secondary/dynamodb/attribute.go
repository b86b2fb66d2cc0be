package dynamodb

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"spec-registry-service/internal/core/codec"
)

// toAttributeValue converts the codec's wire value to the SDK union.
func toAttributeValue(av codec.AttributeValue) (types.AttributeValue, error) {
	switch av.Tag {
	case codec.TagS:
		return &types.AttributeValueMemberS{Value: av.S}, nil
	case codec.TagN:
		return &types.AttributeValueMemberN{Value: av.N}, nil
	case codec.TagBOOL:
		return &types.AttributeValueMemberBOOL{Value: av.BOOL}, nil
	case codec.TagNULL:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case codec.TagL:
		out := make([]types.AttributeValue, len(av.L))
		for i, v := range av.L {
			c, err := toAttributeValue(v)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = c
		}
		return &types.AttributeValueMemberL{Value: out}, nil
	case codec.TagM:
		out, err := toAttributeMap(av.M)
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberM{Value: out}, nil
	default:
		return nil, fmt.Errorf("unsupported tag %q", av.Tag)
	}
}

func toAttributeMap(m map[string]codec.AttributeValue) (map[string]types.AttributeValue, error) {
	out := make(map[string]types.AttributeValue, len(m))
	for k, v := range m {
		c, err := toAttributeValue(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = c
	}
	return out, nil
}

// fromAttributeValue converts an SDK value. Set and binary members are kept
// under their tag with no payload so the codec reports them on decode.
func fromAttributeValue(av types.AttributeValue) codec.AttributeValue {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return codec.S(v.Value)
	case *types.AttributeValueMemberN:
		return codec.N(v.Value)
	case *types.AttributeValueMemberBOOL:
		return codec.BOOL(v.Value)
	case *types.AttributeValueMemberNULL:
		return codec.NULL()
	case *types.AttributeValueMemberL:
		out := make([]codec.AttributeValue, len(v.Value))
		for i, e := range v.Value {
			out[i] = fromAttributeValue(e)
		}
		return codec.L(out...)
	case *types.AttributeValueMemberM:
		return codec.M(fromAttributeMap(v.Value))
	case *types.AttributeValueMemberB:
		return codec.AttributeValue{Tag: "B"}
	case *types.AttributeValueMemberSS:
		return codec.AttributeValue{Tag: "SS"}
	case *types.AttributeValueMemberNS:
		return codec.AttributeValue{Tag: "NS"}
	case *types.AttributeValueMemberBS:
		return codec.AttributeValue{Tag: "BS"}
	default:
		return codec.AttributeValue{Tag: "?"}
	}
}

func fromAttributeMap(m map[string]types.AttributeValue) map[string]codec.AttributeValue {
	out := make(map[string]codec.AttributeValue, len(m))
	for k, v := range m {
		out[k] = fromAttributeValue(v)
	}
	return out
}
